// email.go — данные HTML-карточки напоминания.
// Разметка в email.templ, email_templ.go генерируется командой templ generate.
package message

import "strings"

// cardView — данные HTML-карточки, уже переведённые и отформатированные.
type cardView struct {
	Lang          string
	Title         string
	Subtitle      string
	Body          string
	LabelName     string
	LabelCompany  string
	LabelDocument string
	LabelExpiry   string
	LabelEmail    string
	Name          string
	Company       string
	Document      string
	Expiry        string
	Email         string
	Action        string
	FooterAuto    string
	FooterHelp    string
	Copyright     string
}

const cardStyle = `body{font-family:Arial,sans-serif;background:#f4f4f4;margin:0;padding:20px}` +
	`.container{max-width:600px;margin:0 auto;background:#fff;border-radius:8px;overflow:hidden}` +
	`.header{background:#1e3a8a;color:#fff;padding:24px;text-align:center}` +
	`.content{padding:24px;color:#333;line-height:1.6}` +
	`.info-section{background:#f8fafc;border-left:4px solid #1e3a8a;padding:16px;margin-top:20px}` +
	`.info-item{margin:6px 0}.info-label{font-weight:bold;display:inline-block;min-width:140px}` +
	`.urgent{color:#dc2626;font-weight:bold}` +
	`.footer{background:#f1f5f9;padding:16px;text-align:center;font-size:12px;color:#64748b}`

// bodyLines разбивает текст письма на строки для HTML-карточки.
func bodyLines(body string) []string {
	return strings.Split(body, "\n")
}
