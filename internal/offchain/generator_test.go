package offchain

import (
	"math"
	"reflect"
	"testing"
)

func TestGenerateDeterministic(t *testing.T) {
	addr := "0x1f9090aaE28b8a3dCeaDf281B0F12828e676c326"
	first := Generate(addr)
	second := Generate(addr)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same address must map to the same persona:\n%+v\n%+v", first, second)
	}
}

func TestGenerateCaseInsensitive(t *testing.T) {
	lower := Generate("0xabcdef0123456789abcdef0123456789abcdef01")
	upper := Generate("0xABCDEF0123456789ABCDEF0123456789ABCDEF01")
	if !reflect.DeepEqual(lower, upper) {
		t.Fatal("address casing must not change the persona")
	}
}

func TestGenerateDistinctAddresses(t *testing.T) {
	a := Generate("0x0000000000000000000000000000000000000001")
	b := Generate("0x0000000000000000000000000000000000000002")
	if reflect.DeepEqual(a, b) {
		t.Fatal("different addresses should generally map to different personas")
	}
}

func TestGenerateRanges(t *testing.T) {
	addrs := []string{
		"0x1f9090aaE28b8a3dCeaDf281B0F12828e676c326",
		"0x00000000000000000000000000000000deadbeef",
		"0xabcdef0123456789abcdef0123456789abcdef01",
		"not-an-address",
	}

	for _, addr := range addrs {
		p := Generate(addr)
		if p.Age < 22 || p.Age > 60 {
			t.Fatalf("%s: age %d out of range", addr, p.Age)
		}
		if p.Gender != "male" && p.Gender != "female" {
			t.Fatalf("%s: unexpected gender %q", addr, p.Gender)
		}
		if _, ok := baseIncome[p.Occupation]; !ok {
			t.Fatalf("%s: unexpected occupation %q", addr, p.Occupation)
		}
		if p.MonthlyIncomeUSD%50 != 0 {
			t.Fatalf("%s: income %d not rounded to 50", addr, p.MonthlyIncomeUSD)
		}
		if p.FriendCount < 50 || p.FriendCount > 600 {
			t.Fatalf("%s: friend count %d out of range", addr, p.FriendCount)
		}
		if p.MonthlyPostFrequency < 3.0 || p.MonthlyPostFrequency > 40.0 {
			t.Fatalf("%s: post frequency %v out of range", addr, p.MonthlyPostFrequency)
		}
		if p.AccountAge < 1.0 || p.AccountAge > 15.0 {
			t.Fatalf("%s: account age %v out of range", addr, p.AccountAge)
		}
		if p.AverageReactionsPerPost < 8.0 || p.AverageReactionsPerPost > 60.0 {
			t.Fatalf("%s: reactions %v out of range", addr, p.AverageReactionsPerPost)
		}
		if p.AverageCommentsPerPost < 2.0 || p.AverageCommentsPerPost > 30.0 {
			t.Fatalf("%s: comments %v out of range", addr, p.AverageCommentsPerPost)
		}
		if p.OffchainCreditScore < 300 || p.OffchainCreditScore > 850 || p.OffchainCreditScore%10 != 0 {
			t.Fatalf("%s: credit score %d invalid", addr, p.OffchainCreditScore)
		}
		if math.Round(p.YearsOfExperience*10) != p.YearsOfExperience*10 {
			t.Fatalf("%s: experience %v not rounded to one decimal", addr, p.YearsOfExperience)
		}
	}
}

func TestSeedForStability(t *testing.T) {
	// seed comes from the last 8 hex characters modulo 2^31
	if seedFor("0x00000000000000000000000000000000000000ff") != 0xff {
		t.Fatal("hex tail seed mismatch")
	}
	if seedFor("0xffffffff") != 0xffffffff%(1<<31) {
		t.Fatal("modulo reduction mismatch")
	}
	if seedFor("bogus") != seedFor("BOGUS") {
		t.Fatal("fallback seed must be case-insensitive")
	}
}
