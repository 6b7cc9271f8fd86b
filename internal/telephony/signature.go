package telephony

import (
	"net/http"
	"strings"

	"call-assistant/pkg/logger"

	"github.com/gin-gonic/gin"
	twclient "github.com/twilio/twilio-go/client"
)

const HeaderTwilioSignature = "X-Twilio-Signature"

// SignatureValidator checks X-Twilio-Signature against the public URL
// Twilio was configured with, which may differ from the host the request
// arrives on behind a proxy.
type SignatureValidator struct {
	validator twclient.RequestValidator
	baseURL   string
}

func NewSignatureValidator(authToken, baseURL string) *SignatureValidator {
	return &SignatureValidator{
		validator: twclient.NewRequestValidator(authToken),
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// Valid parses the form and validates the signature over the full URL and
// the POST parameters.
func (v *SignatureValidator) Valid(r *http.Request) bool {
	sig := r.Header.Get(HeaderTwilioSignature)
	if sig == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	params := make(map[string]string, len(r.PostForm))
	for k, vals := range r.PostForm {
		if len(vals) > 0 {
			params[k] = vals[0]
		}
	}
	return v.validator.Validate(v.baseURL+r.URL.RequestURI(), params, sig)
}

// Middleware rejects unsigned or mis-signed webhooks with 403. A nil
// validator disables the check.
func (v *SignatureValidator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v == nil {
			c.Next()
			return
		}
		if !v.Valid(c.Request) {
			logger.FromGin(c).Warn("twilio signature rejected", "path", c.Request.URL.Path)
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
