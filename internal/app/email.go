package app

import "fmt"

// ComposeVerificationEmail renders the verification email sent to new
// accounts. The site audience is German-speaking, so the copy is German.
func ComposeVerificationEmail(userName, verificationURL string) (subject, html, text string) {
	subject = "Bestätigen Sie Ihre E-Mail-Adresse - KI Style Guides"

	html = fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background-color: #1e40af; color: white; padding: 20px; text-align: center; }
    .content { padding: 30px 20px; background-color: #f8f9fa; }
    .button { display: inline-block; padding: 12px 30px; background-color: #059669; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
    .footer { text-align: center; padding: 20px; color: #666; font-size: 14px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>KI Style Guides</h1>
    </div>
    <div class="content">
      <h2>Hallo %[1]s,</h2>
      <p>Willkommen bei KI Style Guides! Bitte bestätigen Sie Ihre E-Mail-Adresse, um fortzufahren.</p>
      <p style="text-align: center;">
        <a href="%[2]s" class="button">E-Mail-Adresse bestätigen</a>
      </p>
      <p>Oder kopieren Sie diesen Link in Ihren Browser:</p>
      <p style="word-break: break-all; color: #059669;">%[2]s</p>
      <p><strong>Hinweis:</strong> Dieser Link ist 24 Stunden gültig.</p>
      <p>Falls Sie sich nicht registriert haben, können Sie diese E-Mail ignorieren.</p>
    </div>
    <div class="footer">
      <p>© 2025 KI Style Guides. Alle Rechte vorbehalten.</p>
    </div>
  </div>
</body>
</html>`, userName, verificationURL)

	text = fmt.Sprintf(`Hallo %s,

Willkommen bei KI Style Guides! Bitte bestätigen Sie Ihre E-Mail-Adresse, um fortzufahren.

Bestätigungslink: %s

Hinweis: Dieser Link ist 24 Stunden gültig.

Falls Sie sich nicht registriert haben, können Sie diese E-Mail ignorieren.

© 2025 KI Style Guides. Alle Rechte vorbehalten.`, userName, verificationURL)

	return subject, html, text
}
