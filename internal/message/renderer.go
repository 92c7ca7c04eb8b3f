// Пакет message — построение текста напоминаний.
// Чистые функции: тема, текст и HTML зависят только от контрольной точки,
// данных документа и языка.
package message

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/bigkaa/expiry-reminder/internal/domain/model"
	"github.com/bigkaa/expiry-reminder/internal/i18n"
	"github.com/bigkaa/expiry-reminder/internal/notifier"
)

// Renderer строит сообщения по каталогам i18n.
type Renderer struct {
	bundle      *i18n.Bundle
	defaultLang string
	now         func() time.Time
}

// NewRenderer создаёт Renderer. defaultLang используется,
// если язык не указан или не поддерживается.
func NewRenderer(bundle *i18n.Bundle, defaultLang string) *Renderer {
	return &Renderer{
		bundle:      bundle,
		defaultLang: defaultLang,
		now:         time.Now,
	}
}

// resolveLang возвращает поддерживаемый язык.
func (r *Renderer) resolveLang(lang string) string {
	if lang != "" && r.bundle.HasLanguage(lang) {
		return lang
	}
	return r.defaultLang
}

// Subject возвращает тему: "<префикс контрольной точки> - <вид документа>".
func (r *Renderer) Subject(lang string, m model.Milestone, kind model.DocumentKind) string {
	prefix := r.bundle.Translate(r.resolveLang(lang), "milestone."+string(m)+".subject")
	return fmt.Sprintf("%s - %s", prefix, kind)
}

// Render строит напоминание по документу для контрольной точки.
func (r *Renderer) Render(ctx context.Context, lang string, m model.Milestone, doc *model.Document) (notifier.Message, error) {
	if !m.Valid() {
		return notifier.Message{}, fmt.Errorf("неизвестная контрольная точка %q", m)
	}
	lang = r.resolveLang(lang)

	msgCtx := notifier.MessageContext{
		HolderName:   doc.HolderName,
		Organization: doc.Organization,
		DocumentKind: string(doc.Kind),
		ExpiryDate:   doc.ExpiryDate,
		ContactEmail: doc.ContactEmail,
	}

	body := r.bundle.Translatef(lang, "milestone."+string(m)+".body",
		doc.HolderName, doc.Kind, r.bundle.FormatDate(lang, doc.ExpiryDate))

	return r.Compose(ctx, lang, doc.ContactEmail, r.Subject(lang, m, doc.Kind), body, msgCtx)
}

// Compose собирает сообщение с произвольными темой и текстом,
// добавляя HTML-карточку с данными документа.
func (r *Renderer) Compose(ctx context.Context, lang, to, subject, body string, msgCtx notifier.MessageContext) (notifier.Message, error) {
	lang = r.resolveLang(lang)
	t := func(key string) string { return r.bundle.Translate(lang, key) }

	expiry := ""
	if !msgCtx.ExpiryDate.IsZero() {
		expiry = r.bundle.FormatDate(lang, msgCtx.ExpiryDate)
	}

	view := cardView{
		Lang:          lang,
		Title:         t("email.title"),
		Subtitle:      t("email.subtitle"),
		Body:          body,
		LabelName:     t("email.label.name"),
		LabelCompany:  t("email.label.company"),
		LabelDocument: t("email.label.document"),
		LabelExpiry:   t("email.label.expiry"),
		LabelEmail:    t("email.label.email"),
		Name:          msgCtx.HolderName,
		Company:       msgCtx.Organization,
		Document:      msgCtx.DocumentKind,
		Expiry:        expiry,
		Email:         msgCtx.ContactEmail,
		Action:        t("email.action"),
		FooterAuto:    t("email.footer.auto"),
		FooterHelp:    t("email.footer.help"),
		Copyright:     r.bundle.Translatef(lang, "email.footer.copyright", r.now().Year()),
	}

	var buf bytes.Buffer
	if err := emailCard(view).Render(ctx, &buf); err != nil {
		return notifier.Message{}, fmt.Errorf("рендеринг HTML: %w", err)
	}

	return notifier.Message{
		To:      to,
		Subject: subject,
		Text:    body,
		HTML:    buf.String(),
		Context: msgCtx,
	}, nil
}
