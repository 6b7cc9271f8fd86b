package telephony

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"call-assistant/internal/apperrors"
	"call-assistant/pkg/utils"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	twapi "github.com/twilio/twilio-go/rest/api/v2010"
)

const defaultSearchLimit = 10

// TwilioProvider talks to the Twilio REST API. Reads are retried with
// backoff; purchases and releases are not.
type TwilioProvider struct {
	client     *twilio.RestClient
	accountSID string
	retryFor   time.Duration
}

func NewTwilioProvider(accountSID, authToken string) *TwilioProvider {
	c := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioProvider{client: c, accountSID: accountSID, retryFor: 10 * time.Second}
}

func (p *TwilioProvider) Name() string { return "twilio" }

func (p *TwilioProvider) HealthCheck(ctx context.Context) error {
	_, err := p.client.Api.FetchAccount(p.accountSID)
	if err != nil {
		return apperrors.Upstream("twilio fetch account", err)
	}
	return nil
}

func (p *TwilioProvider) SearchNumbers(ctx context.Context, req SearchNumbersRequest) ([]AvailableNumber, error) {
	country := strings.ToUpper(strings.TrimSpace(req.CountryISO2))
	if country == "" {
		country = "US"
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	params := &twapi.ListAvailablePhoneNumberLocalParams{}
	params.SetAreaCode(req.AreaCode)
	params.SetVoiceEnabled(true)
	params.SetLimit(limit)

	var found []twapi.ApiV2010AvailablePhoneNumberLocal
	err := utils.Retry(ctx, p.retryFor, func() error {
		res, err := p.client.Api.ListAvailablePhoneNumberLocal(country, params)
		if err != nil {
			return retryable(err)
		}
		found = res
		return nil
	})
	if err != nil {
		return nil, apperrors.Upstream("twilio search numbers", err)
	}

	out := make([]AvailableNumber, 0, len(found))
	for _, n := range found {
		out = append(out, AvailableNumber{
			PhoneNumber:  deref(n.PhoneNumber),
			FriendlyName: deref(n.FriendlyName),
			Locality:     deref(n.Locality),
			Region:       deref(n.Region),
			Country:      country,
		})
	}
	return out, nil
}

func (p *TwilioProvider) BuyNumber(ctx context.Context, req BuyNumberRequest) (BuyNumberResult, error) {
	params := &twapi.CreateIncomingPhoneNumberParams{}
	params.SetPhoneNumber(req.Number)
	params.SetVoiceUrl(req.VoiceURL)
	params.SetVoiceMethod(http.MethodPost)
	if req.StatusCallbackURL != "" {
		params.SetStatusCallback(req.StatusCallbackURL)
		params.SetStatusCallbackMethod(http.MethodPost)
	}
	if req.FriendlyName != "" {
		params.SetFriendlyName(req.FriendlyName)
	}

	res, err := p.client.Api.CreateIncomingPhoneNumber(params)
	if err != nil {
		return BuyNumberResult{}, apperrors.Upstream("twilio purchase number", err)
	}
	return BuyNumberResult{
		Number:           deref(res.PhoneNumber),
		FriendlyName:     deref(res.FriendlyName),
		ProviderNumberID: deref(res.Sid),
	}, nil
}

func (p *TwilioProvider) ReleaseNumber(ctx context.Context, req ReleaseNumberRequest) error {
	if req.ProviderNumberID == "" {
		return apperrors.Validation("provider number id required")
	}
	err := p.client.Api.DeleteIncomingPhoneNumber(req.ProviderNumberID, &twapi.DeleteIncomingPhoneNumberParams{})
	if err != nil {
		// Already gone at Twilio: nothing left to release.
		if statusOf(err) == http.StatusNotFound {
			return nil
		}
		return apperrors.Upstream("twilio release number", err)
	}
	return nil
}

func (p *TwilioProvider) FetchCDR(ctx context.Context, providerCallID string) (CDR, error) {
	var call *twapi.ApiV2010Call
	err := utils.Retry(ctx, p.retryFor, func() error {
		res, err := p.client.Api.FetchCall(providerCallID, &twapi.FetchCallParams{})
		if err != nil {
			return retryable(err)
		}
		call = res
		return nil
	})
	if err != nil {
		return CDR{}, apperrors.Upstream("twilio fetch call", err)
	}

	cdr := CDR{
		ProviderCallID: providerCallID,
		Status:         deref(call.Status),
		Currency:       deref(call.PriceUnit),
	}
	if d, err := strconv.Atoi(deref(call.Duration)); err == nil {
		cdr.DurationSeconds = &d
	}
	if price, ok := ParsePrice(deref(call.Price)); ok {
		cdr.Price = &price
	}
	if t, err := time.Parse(time.RFC1123Z, deref(call.EndTime)); err == nil {
		cdr.EndedAt = &t
	}
	return cdr, nil
}

// ParsePrice reads a Twilio price ("-0.0085") as a positive amount.
func ParsePrice(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return math.Abs(f), true
}

// retryable marks 4xx responses other than 429 as permanent.
func retryable(err error) error {
	s := statusOf(err)
	if s >= 400 && s < 500 && s != http.StatusTooManyRequests {
		return utils.Permanent(err)
	}
	return err
}

func statusOf(err error) int {
	var te *twclient.TwilioRestError
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ Provider = (*TwilioProvider)(nil)
