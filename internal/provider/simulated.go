package provider

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/imposter/internal/identity"
)

const addressAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Simulated synthesizes plausible identities without any network call. It
// implements every provider capability; its event source is always empty
// because simulated events arrive through the simulation generator instead.
type Simulated struct {
	domain string
}

// NewSimulated creates the simulated variant. Addresses are minted under
// domain, which defaults to "imposter.dev".
func NewSimulated(domain string) *Simulated {
	if domain == "" {
		domain = "imposter.dev"
	}
	return &Simulated{domain: domain}
}

func (s *Simulated) CreateAddress(context.Context) (*MailAccount, error) {
	return &MailAccount{Address: randString(10) + "@" + s.domain}, nil
}

// CreateNumber mints a Sri Lankan mobile number: +94 7X XXX XXXX.
func (s *Simulated) CreateNumber(context.Context) (string, error) {
	return fmt.Sprintf("+947%08d", rand.Intn(100000000)), nil
}

func (s *Simulated) CreateCard(context.Context) (string, *identity.CardDetails, error) {
	details := &identity.CardDetails{
		Number: luhnCardNumber(),
		Expiry: randomExpiry(),
		CVV:    fmt.Sprintf("%03d", rand.Intn(900)+100),
		Holder: "Safe Identity User",
		Limit:  5000,
	}
	return uuid.New().String(), details, nil
}

func (s *Simulated) SetLocked(context.Context, string, bool) error {
	return nil
}

func (s *Simulated) FetchEvents(context.Context, *identity.Resource) ([]EventSummary, error) {
	return nil, nil
}

func (s *Simulated) FetchEventDetail(context.Context, *identity.Resource, string) (*identity.Event, error) {
	return nil, identity.ErrNotFound
}

func randString(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(addressAlphabet[rand.Intn(len(addressAlphabet))])
	}
	return b.String()
}

// luhnCardNumber returns a 16-digit card number with a valid check digit,
// grouped in fours.
func luhnCardNumber() string {
	digits := make([]int, 16)
	digits[0] = 4
	for i := 1; i < 15; i++ {
		digits[i] = rand.Intn(10)
	}
	digits[15] = luhnCheckDigit(digits[:15])

	var b strings.Builder
	for i, d := range digits {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(byte('0' + d))
	}
	return b.String()
}

func luhnCheckDigit(digits []int) int {
	sum := 0
	// Walk right to left; with the check digit appended, these positions
	// are the doubled ones.
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if (len(digits)-i)%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return (10 - sum%10) % 10
}

// LuhnValid reports whether a (possibly space-grouped) card number passes
// the check-digit validation.
func LuhnValid(number string) bool {
	clean := strings.ReplaceAll(number, " ", "")
	sum := 0
	double := false
	for i := len(clean) - 1; i >= 0; i-- {
		c := clean[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return len(clean) > 0 && sum%10 == 0
}

// randomExpiry returns MM/YY one to three years out.
func randomExpiry() string {
	now := time.Now()
	year := now.Year() + rand.Intn(3) + 1
	month := rand.Intn(12) + 1
	return fmt.Sprintf("%02d/%02d", month, year%100)
}
