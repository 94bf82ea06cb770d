package simulate

import (
	"math"
	"math/rand"
)

var (
	senders   = []string{"Amazon", "Netflix", "Google", "Apple", "LinkedIn", "Slack", "Zoom"}
	subjects  = []string{"Your order has shipped", "Verify your email", "Security Alert", "New Login", "Subscription Update"}
	bodies    = []string{"Please click here to verify.", "Your code is 123456.", "Someone logged in from new device.", "Your payment failed."}
	smsBodies = []string{"Your verification code is 84920.", "Your delivery is arriving soon.", "Appointment confirmed for tomorrow."}
	merchants = []string{"Uber", "Starbucks", "Amazon AWS", "Target", "Whole Foods", "Steam"}
)

func pick(list []string) string {
	return list[rand.Intn(len(list))]
}

// RandomSender returns a plausible sender id for synthetic messages.
func RandomSender() string { return pick(senders) }

// RandomSubject returns a plausible email subject line.
func RandomSubject() string { return pick(subjects) }

// RandomBody returns a plausible email body.
func RandomBody() string { return pick(bodies) }

// RandomSMSBody returns a plausible SMS body.
func RandomSMSBody() string { return pick(smsBodies) }

// RandomMerchant returns a plausible merchant name.
func RandomMerchant() string { return pick(merchants) }

// RandomAmount returns a transaction amount under 100 with two decimals.
func RandomAmount() float64 {
	return math.Round(rand.Float64()*100*100) / 100
}
