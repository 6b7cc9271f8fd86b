package telephony

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"call-assistant/internal/apperrors"

	"github.com/google/uuid"
)

// SandboxProvider is an in-memory stand-in for Twilio, used in local
// development (TWILIO_SANDBOX=true) and tests. Searches return synthetic
// 555-01xx numbers; purchased numbers are tracked until released.
type SandboxProvider struct {
	mu     sync.Mutex
	owned  map[string]string // provider id -> number
	cdrs   map[string]CDR
	failOn map[string]error
}

func NewSandboxProvider() *SandboxProvider {
	return &SandboxProvider{
		owned:  map[string]string{},
		cdrs:   map[string]CDR{},
		failOn: map[string]error{},
	}
}

func (p *SandboxProvider) Name() string { return "sandbox" }

func (p *SandboxProvider) HealthCheck(ctx context.Context) error { return nil }

func (p *SandboxProvider) SearchNumbers(ctx context.Context, req SearchNumbersRequest) ([]AvailableNumber, error) {
	if err := p.failure("search"); err != nil {
		return nil, err
	}
	if req.AreaCode < 200 || req.AreaCode > 999 {
		return nil, apperrors.Validation("area_code must be a 3-digit code")
	}
	country := strings.ToUpper(req.CountryISO2)
	if country == "" {
		country = "US"
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	out := make([]AvailableNumber, 0, limit)
	for i := 0; i < limit; i++ {
		num := fmt.Sprintf("+1%d5550%03d", req.AreaCode, 100+i)
		out = append(out, AvailableNumber{
			PhoneNumber:  num,
			FriendlyName: fmt.Sprintf("(%d) 555-0%03d", req.AreaCode, 100+i),
			Country:      country,
		})
	}
	return out, nil
}

func (p *SandboxProvider) BuyNumber(ctx context.Context, req BuyNumberRequest) (BuyNumberResult, error) {
	if err := p.failure("buy"); err != nil {
		return BuyNumberResult{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range p.owned {
		if n == req.Number {
			return BuyNumberResult{}, apperrors.Conflict("number %s already purchased", req.Number)
		}
	}
	sid := "PN" + strings.ReplaceAll(uuid.NewString(), "-", "")
	p.owned[sid] = req.Number
	name := req.FriendlyName
	if name == "" {
		name = req.Number
	}
	return BuyNumberResult{Number: req.Number, FriendlyName: name, ProviderNumberID: sid}, nil
}

func (p *SandboxProvider) ReleaseNumber(ctx context.Context, req ReleaseNumberRequest) error {
	if err := p.failure("release"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.owned, req.ProviderNumberID)
	return nil
}

func (p *SandboxProvider) FetchCDR(ctx context.Context, providerCallID string) (CDR, error) {
	if err := p.failure("fetch"); err != nil {
		return CDR{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	cdr, ok := p.cdrs[providerCallID]
	if !ok {
		return CDR{}, apperrors.NotFound("call record")
	}
	return cdr, nil
}

// Owns reports whether the number is currently held.
func (p *SandboxProvider) Owns(number string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range p.owned {
		if n == number {
			return true
		}
	}
	return false
}

// SetCDR seeds the record FetchCDR returns.
func (p *SandboxProvider) SetCDR(cdr CDR) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cdrs[cdr.ProviderCallID] = cdr
}

// FailOn makes op ("search", "buy", "release", "fetch") return err.
// A nil err clears it.
func (p *SandboxProvider) FailOn(op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failOn, op)
		return
	}
	p.failOn[op] = err
}

func (p *SandboxProvider) failure(op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.failOn[op]; ok {
		return apperrors.Upstream("sandbox "+op, err)
	}
	return nil
}

var _ Provider = (*SandboxProvider)(nil)
