package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/Rxkz/whispering-tomes-website/internal/assets"
)

// Receipt is everything the purchase confirmation email shows.
type Receipt struct {
	BuyerEmail string
	ItemTitle  string
	OrderID    string
	Link       assets.SignedLink
	Validity   time.Duration
	Year       int
}

// DisplayName is the local part of an email address.
func DisplayName(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return email
	}
	return local
}

// validityText renders a window as "24 hours", "90 minutes" or "2 days".
func validityText(d time.Duration) string {
	switch {
	case d >= 48*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%d days", int(d/(24*time.Hour)))
	case d >= time.Hour && d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	default:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
}

type receiptView struct {
	Name     string
	Title    string
	OrderID  string
	URL      string
	Validity string
	Year     int
}

var receiptHTML = htmltemplate.Must(htmltemplate.New("receipt").Parse(`<table style="width:100%; max-width:600px; margin:auto; font-family:'Cormorant Garamond', Garamond, 'Times New Roman', serif; background:#10141A; border:1px solid #C9B037; border-radius:12px; color:#F5E9D0; text-align:center;">
  <tr>
    <td style="color:#C9B037; padding:32px 36px 18px 36px;">
      <h2 style="margin:0; font-size:2.4em; letter-spacing:2px; font-weight:700;">KIA BENISTON</h2>
    </td>
  </tr>
  <tr>
    <td style="padding:0 36px 32px 36px;">
      <div style="color:#C9B037; font-size:1.3em; font-weight:600; margin-bottom:18px;">Thank You for Your Order!</div>
      <p>Hi <span style="color:#C9B037;">{{.Name}}</span>,</p>
      <p>Thank you for purchasing <span style="color:#C9B037; font-weight:bold;">{{.Title}}</span>!</p>
      <p>Your order ID is <span style="color:#C9B037; font-family:monospace;">#{{.OrderID}}</span>.</p>
      <hr style="border:none; border-top:1px solid #C9B03733; margin:24px 0;">
      <div>
        <span style="font-weight:bold; color:#C9B037;">Your download link (expires in {{.Validity}}):</span><br>
        <a href="{{.URL}}" style="display:inline-block; margin-top:18px; background:#C9B037; color:#10141A; padding:14px 36px; border-radius:6px; text-decoration:none; font-weight:bold;">Download your book</a>
      </div>
      <p style="color:#B8A77A; margin-top:32px;">If you have any issues, just reply to this email.<br>Enjoy your reading adventure!</p>
    </td>
  </tr>
  <tr>
    <td style="background:#181A1B; color:#C9B037; padding:18px;">&copy; {{.Year}} Whispering Tomes. All rights reserved.</td>
  </tr>
</table>`))

var receiptText = texttemplate.Must(texttemplate.New("receipt").Parse(`Hi {{.Name}},

Thank you for purchasing {{.Title}}!
Your order ID is #{{.OrderID}}.

Your download link (expires in {{.Validity}}):
{{.URL}}

If you have any issues, just reply to this email.
Enjoy your reading adventure!

(c) {{.Year}} Whispering Tomes
`))

// Render builds the subject, html and plain-text bodies for r.
func Render(r Receipt) (subject, html, text string, err error) {
	year := r.Year
	if year == 0 {
		year = time.Now().Year()
	}
	view := receiptView{
		Name:     DisplayName(r.BuyerEmail),
		Title:    r.ItemTitle,
		OrderID:  r.OrderID,
		URL:      r.Link.URL,
		Validity: validityText(r.Validity),
		Year:     year,
	}

	var hb, tb bytes.Buffer
	if err := receiptHTML.Execute(&hb, view); err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}
	if err := receiptText.Execute(&tb, view); err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}
	return "Your Book Purchase: " + r.ItemTitle, hb.String(), tb.String(), nil
}
