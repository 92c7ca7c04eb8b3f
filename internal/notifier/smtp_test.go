package notifier

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	mail "github.com/wneessen/go-mail"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// closedPort возвращает порт, на котором гарантированно никто не слушает.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

func TestBuildMsg(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "localhost", Port: 25, From: "noreply@example.com"}, testLogger())

	m, err := n.buildMsg(Message{
		To:      "budi@example.com",
		Subject: "Pengingat 1 Bulan Sebelum Expired - KITAS",
		Text:    "Halo Budi",
		HTML:    "<p>Halo Budi</p>",
	})
	if err != nil {
		t.Fatalf("buildMsg() ошибка: %v", err)
	}

	if ids := m.GetGenHeader(mail.HeaderMessageID); len(ids) != 1 || ids[0] == "" {
		t.Errorf("Message-ID не сгенерирован: %v", ids)
	}
	if subj := m.GetGenHeader(mail.HeaderSubject); len(subj) != 1 || subj[0] != "Pengingat 1 Bulan Sebelum Expired - KITAS" {
		t.Errorf("Subject = %v", subj)
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() ошибка: %v", err)
	}
	raw := buf.String()
	for _, want := range []string{"text/plain", "text/html", "multipart/alternative"} {
		if !strings.Contains(raw, want) {
			t.Errorf("письмо не содержит %q", want)
		}
	}
}

func TestBuildMsg_InvalidRecipient(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "localhost", Port: 25, From: "noreply@example.com"}, testLogger())

	if _, err := n.buildMsg(Message{To: "not-an-email", Subject: "x", Text: "x"}); err == nil {
		t.Error("buildMsg() принял некорректный адрес")
	}
}

func TestSend_TransportError(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{
		Host:      "127.0.0.1",
		Port:      closedPort(t),
		From:      "noreply@example.com",
		TLSPolicy: "none",
		Timeout:   2 * time.Second,
	}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	receipt, err := n.Send(ctx, Message{To: "budi@example.com", Subject: "s", Text: "t"})
	if err == nil {
		t.Fatal("Send() без сервера не вернул ошибку")
	}
	if !errors.Is(err, ErrTransport) {
		t.Errorf("ошибка %v не оборачивает ErrTransport", err)
	}
	if receipt != nil {
		t.Errorf("receipt = %+v, ожидали nil", receipt)
	}
}

func TestVerify_ReadinessState(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{
		Host:      "127.0.0.1",
		Port:      closedPort(t),
		From:      "noreply@example.com",
		TLSPolicy: "none",
		Timeout:   2 * time.Second,
	}, testLogger())

	if status, _ := n.CheckReady(); status != "degraded" {
		t.Errorf("CheckReady() до проверки = %q, ожидали degraded", status)
	}

	if err := n.Verify(context.Background()); err == nil {
		t.Fatal("Verify() без сервера не вернул ошибку")
	}

	status, msg := n.CheckReady()
	if status != "degraded" || !strings.Contains(msg, "SMTP недоступен") {
		t.Errorf("CheckReady() = %q, %q", status, msg)
	}
}

func TestTLSPolicy(t *testing.T) {
	if tlsPolicy("none") != mail.NoTLS {
		t.Error("none → NoTLS")
	}
	if tlsPolicy("opportunistic") != mail.TLSOpportunistic {
		t.Error("opportunistic → TLSOpportunistic")
	}
	if tlsPolicy("mandatory") != mail.TLSMandatory {
		t.Error("mandatory → TLSMandatory")
	}
}
