// Package offchain synthesizes deterministic off-chain persona profiles for
// wallet addresses. The profile is seeded from the address alone so repeated
// scoring of the same wallet always sees the same demographics.
package offchain

import (
	"hash/fnv"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// Persona is the synthetic demographic and social profile attached to a
// wallet's score breakdown.
type Persona struct {
	Age                     int     `json:"age"`
	Gender                  string  `json:"gender"`
	Occupation              string  `json:"occupation"`
	MonthlyIncomeUSD        int     `json:"monthly_income_usd"`
	YearsOfExperience       float64 `json:"years_of_experience"`
	NumberOfCompanies       int     `json:"number_of_companies"`
	FriendCount             int     `json:"friend_count"`
	MonthlyPostFrequency    float64 `json:"monthly_post_frequency"`
	AccountAge              float64 `json:"account_age"`
	AverageReactionsPerPost float64 `json:"average_reactions_per_post"`
	AverageCommentsPerPost  float64 `json:"average_comments_per_post"`
	OffchainCreditScore     int     `json:"offchain_credit_score"`
}

var occupations = []struct {
	Name   string
	Weight float64
}{
	{"office_worker", 0.35},
	{"professional", 0.25},
	{"freelancer", 0.15},
	{"entrepreneur", 0.15},
	{"student", 0.10},
}

var baseIncome = map[string]float64{
	"student":       400,
	"freelancer":    1000,
	"office_worker": 1500,
	"entrepreneur":  2500,
	"professional":  3000,
}

var postFrequencyFactor = map[string]float64{
	"student":       1.3,
	"freelancer":    1.2,
	"office_worker": 1.0,
	"entrepreneur":  1.1,
	"professional":  0.9,
}

// Generate builds the persona for an address. The same address always maps to
// the same persona.
func Generate(walletAddress string) Persona {
	rng := rand.New(rand.NewSource(seedFor(walletAddress)))

	age := drawAge(rng)
	gender := drawGender(rng)
	occupation := drawOccupation(rng)
	income := drawIncome(rng, occupation, age)
	experience := drawExperience(rng, age, occupation)
	companies := drawCompanyCount(rng, experience, occupation)
	friends := drawFriendCount(rng, age)
	postFreq := drawPostFrequency(rng, age, occupation)
	accountAge := drawSocialAccountAge(rng, age)
	reactions := drawReactions(rng, friends)
	comments := drawComments(rng, reactions)
	score := drawCreditScore(rng, income, experience, friends)

	return Persona{
		Age:                     age,
		Gender:                  gender,
		Occupation:              occupation,
		MonthlyIncomeUSD:        income,
		YearsOfExperience:       round1(experience),
		NumberOfCompanies:       companies,
		FriendCount:             friends,
		MonthlyPostFrequency:    round1(postFreq),
		AccountAge:              round1(accountAge),
		AverageReactionsPerPost: round1(reactions),
		AverageCommentsPerPost:  round1(comments),
		OffchainCreditScore:     score,
	}
}

// seedFor derives the seed from the last 8 hex characters of the address,
// reduced modulo 2^31. Non-hex addresses fall back to an FNV hash so the
// mapping stays deterministic.
func seedFor(walletAddress string) int64 {
	s := strings.ToLower(strings.TrimSpace(walletAddress))
	tail := s
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	if v, err := strconv.ParseUint(tail, 16, 64); err == nil {
		return int64(v % (1 << 31))
	}
	h := fnv.New32a()
	h.Write([]byte(s))
	return int64(h.Sum32() % (1 << 31))
}

func drawAge(rng *rand.Rand) int {
	age := int(gauss(rng, 35, 10))
	return clampInt(age, 22, 60)
}

func drawGender(rng *rand.Rand) string {
	if rng.Intn(2) == 0 {
		return "male"
	}
	return "female"
}

func drawOccupation(rng *rand.Rand) string {
	r := rng.Float64()
	cumulative := 0.0
	for _, occ := range occupations {
		cumulative += occ.Weight
		if r <= cumulative {
			return occ.Name
		}
	}
	return "office_worker"
}

func drawIncome(rng *rand.Rand, occupation string, age int) int {
	base, ok := baseIncome[occupation]
	if !ok {
		base = 1200
	}

	// experience premium: 2% per year after 25
	ageFactor := 1 + float64(age-25)*0.02
	income := base * math.Max(0.8, ageFactor)
	income *= uniform(rng, 0.8, 1.2)

	return int(math.Round(income/50) * 50)
}

func drawExperience(rng *rand.Rand, age int, occupation string) float64 {
	if occupation == "student" {
		return round1(uniform(rng, 0.5, 2.5))
	}

	maxExperience := math.Max(0, float64(age-23))
	experience := maxExperience * uniform(rng, 0.6, 0.95)
	return math.Max(1.0, round1(experience))
}

func drawCompanyCount(rng *rand.Rand, experience float64, occupation string) int {
	switch occupation {
	case "student":
		return rng.Intn(2)
	case "freelancer":
		return 2 + rng.Intn(4)
	}

	// roughly one company per 3-4.5 years
	avgYearsPerCompany := uniform(rng, 3, 4.5)
	companies := int(math.Round(experience / avgYearsPerCompany))
	return clampInt(companies, 1, 6)
}

func drawFriendCount(rng *rand.Rand, age int) int {
	base := gauss(rng, 250, 80)
	ageFactor := math.Max(0.8, 1.3-float64(age-25)/50)
	return clampInt(int(base*ageFactor), 50, 600)
}

func drawPostFrequency(rng *rand.Rand, age int, occupation string) float64 {
	freq := gauss(rng, 12, 4)
	freq *= math.Max(0.7, 1.4-float64(age-25)/40)
	if f, ok := postFrequencyFactor[occupation]; ok {
		freq *= f
	}
	return clampFloat(freq, 3.0, 40.0)
}

func drawSocialAccountAge(rng *rand.Rand, age int) float64 {
	maxAccountAge := math.Min(float64(age-18), 12)
	accountAge := uniform(rng, 2.5, math.Max(3, maxAccountAge))
	return clampFloat(accountAge, 1.0, 15.0)
}

func drawReactions(rng *rand.Rand, friends int) float64 {
	engagementRate := uniform(rng, 0.05, 0.12)
	reactions := float64(friends) * engagementRate * uniform(rng, 0.7, 1.3)
	return clampFloat(reactions, 8.0, 60.0)
}

func drawComments(rng *rand.Rand, reactions float64) float64 {
	return clampFloat(reactions*uniform(rng, 0.4, 0.7), 2.0, 30.0)
}

func drawCreditScore(rng *rand.Rand, income int, experience float64, friends int) int {
	score := 650.0
	score += math.Min(80, float64(income)/30)
	score += math.Min(40, experience*4)
	score += math.Min(30, float64(friends)/15)
	score += uniform(rng, -30, 30)
	score = clampFloat(score, 300, 850)
	return int(math.Round(score/10) * 10)
}

func gauss(rng *rand.Rand, mu, sigma float64) float64 {
	return rng.NormFloat64()*sigma + mu
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
