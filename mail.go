package auth

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
)

const (
	VerificationEmailSubject  = "Verify your YapYap Email"
	VerificationEmailTemplate = "verify_email"
	VerificationPath          = "/verify-email"
)

// NewMailViews loads the embedded mail templates.
func NewMailViews() (fiber.Views, error) {
	engine := django.NewFileSystem(http.FS(GetMailTemplatesFS()), ".html")
	if err := engine.Load(); err != nil {
		return nil, err
	}
	return engine, nil
}

// VerificationLink builds the link mailed to a signup applicant.
func VerificationLink(clientBaseURL, token string) string {
	q := url.Values{}
	q.Set("token", token)
	return strings.TrimRight(clientBaseURL, "/") + VerificationPath + "?" + q.Encode()
}

func renderVerificationEmail(views fiber.Views, fullName, link string) (string, error) {
	var buf bytes.Buffer
	err := views.Render(&buf, VerificationEmailTemplate, fiber.Map{
		"full_name":  fullName,
		"verify_url": link,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
