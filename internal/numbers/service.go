package numbers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"call-assistant/internal/apperrors"
	"call-assistant/internal/telephony"
	"call-assistant/internal/validator"
	"call-assistant/pkg/logger"
	"call-assistant/pkg/utils"

	"github.com/google/uuid"
)

const (
	inboundPath = "/webhooks/twilio/incoming-call"
	statusPath  = "/webhooks/twilio/call-status"
)

// Service manages the numbers a business rents from the telephony provider.
type Service struct {
	repo     Repository
	provider telephony.Provider
	baseURL  string
	clock    func() time.Time
}

// NewService takes the public base URL Twilio uses to reach the webhooks.
func NewService(repo Repository, provider telephony.Provider, webhookBaseURL string) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		baseURL:  strings.TrimRight(webhookBaseURL, "/"),
		clock:    time.Now,
	}
}

func (s *Service) Search(ctx context.Context, in SearchInput) ([]telephony.AvailableNumber, error) {
	in.AreaCode = strings.TrimSpace(in.AreaCode)
	in.Country = strings.ToUpper(strings.TrimSpace(in.Country))
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	area, _ := strconv.Atoi(in.AreaCode)
	found, err := s.provider.SearchNumbers(ctx, telephony.SearchNumbersRequest{
		CountryISO2: countryOrDefault(in.Country),
		AreaCode:    area,
	})
	if err != nil {
		return nil, err
	}
	logger.From(ctx).Info("phone number search", "area_code", in.AreaCode, "country", countryOrDefault(in.Country), "results", len(found))
	return found, nil
}

// Purchase buys a number for businessID. A business holds at most one
// active number. If the row cannot be stored the number is released again.
func (s *Service) Purchase(ctx context.Context, businessID string, in PurchaseInput) (PhoneNumber, error) {
	in.Country = strings.ToUpper(strings.TrimSpace(in.Country))
	if err := validator.Struct(in); err != nil {
		return PhoneNumber{}, err
	}
	number, err := utils.NormalizeE164(in.PhoneNumber)
	if err != nil || !strings.HasPrefix(number, "+1") {
		return PhoneNumber{}, apperrors.Validation("phone_number must be a US or Canadian number")
	}

	active, err := s.repo.CountActive(ctx, businessID)
	if err != nil {
		return PhoneNumber{}, err
	}
	if active > 0 {
		return PhoneNumber{}, ErrAlreadyActive
	}

	log := logger.From(ctx).With("business_id", businessID, "phone_number", number)
	bought, err := s.provider.BuyNumber(ctx, telephony.BuyNumberRequest{
		Number:            number,
		FriendlyName:      strings.TrimSpace(in.FriendlyName),
		VoiceURL:          s.baseURL + inboundPath,
		StatusCallbackURL: s.baseURL + statusPath,
	})
	if err != nil {
		log.Error("phone number purchase failed", "err", err)
		return PhoneNumber{}, err
	}

	areaCode := in.AreaCode
	if areaCode == "" {
		areaCode = number[2:5]
	}
	now := s.clock().UTC()
	n := PhoneNumber{
		ID:           uuid.NewString(),
		BusinessID:   businessID,
		TwilioSID:    bought.ProviderNumberID,
		PhoneNumber:  number,
		FriendlyName: firstNonEmpty(bought.FriendlyName, in.FriendlyName, number),
		AreaCode:     areaCode,
		Country:      countryOrDefault(in.Country),
		Status:       StatusActive,
		MonthlyCost:  DefaultMonthlyCost,
		PurchasedAt:  now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		log.Error("storing purchased number failed, releasing", "err", err, "twilio_sid", n.TwilioSID)
		if rerr := s.provider.ReleaseNumber(context.WithoutCancel(ctx), telephony.ReleaseNumberRequest{
			Number:           number,
			ProviderNumberID: n.TwilioSID,
		}); rerr != nil {
			log.Error("releasing orphaned number failed", "err", rerr, "twilio_sid", n.TwilioSID)
		}
		return PhoneNumber{}, err
	}
	log.Info("phone number purchased", "twilio_sid", n.TwilioSID)
	return n, nil
}

func (s *Service) List(ctx context.Context, businessID string) ([]PhoneNumber, error) {
	return s.repo.ListByBusiness(ctx, businessID)
}

// Release returns the number to the provider and marks it inactive, which
// stops inbound matching.
func (s *Service) Release(ctx context.Context, businessID, id string) (PhoneNumber, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return PhoneNumber{}, err
	}
	if n.BusinessID != businessID {
		return PhoneNumber{}, ErrNotFound
	}
	if n.Status == StatusInactive {
		return n, nil
	}
	if err := s.provider.ReleaseNumber(ctx, telephony.ReleaseNumberRequest{
		Number:           n.PhoneNumber,
		ProviderNumberID: n.TwilioSID,
	}); err != nil {
		return PhoneNumber{}, err
	}
	n.Status = StatusInactive
	n.UpdatedAt = s.clock().UTC()
	if err := s.repo.UpdateStatus(ctx, n); err != nil {
		return PhoneNumber{}, err
	}
	logger.From(ctx).Info("phone number released", "business_id", businessID, "phone_number", n.PhoneNumber)
	return n, nil
}

// ResolveLine maps a dialed number to its owning business.
func (s *Service) ResolveLine(ctx context.Context, dialed string) (telephony.Line, error) {
	number, err := utils.NormalizeE164(dialed)
	if err != nil {
		return telephony.Line{}, ErrNotFound
	}
	n, err := s.repo.GetActiveByNumber(ctx, number)
	if err != nil {
		return telephony.Line{}, err
	}
	return telephony.Line{PhoneNumberID: n.ID, BusinessID: n.BusinessID, Number: n.PhoneNumber}, nil
}

func countryOrDefault(c string) string {
	if c == "" {
		return "US"
	}
	return c
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
