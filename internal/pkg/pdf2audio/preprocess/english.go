package preprocess

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyRe  = regexp.MustCompile(`\$(\d{1,3}(?:,\d{3})+|\d+)(?:\.(\d{2}))?\b`)
	percentRe   = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s?%`)
	timeRe      = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*([AaPp][Mm])?\b`)
	ordinalRe   = regexp.MustCompile(`\b(\d+)(st|nd|rd|th)\b`)
	groupedRe   = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+(?:\.\d+)?\b`)
	decimalRe   = regexp.MustCompile(`\b(\d+)\.(\d+)\b`)
	integerRe   = regexp.MustCompile(`\b\d+\b`)
	maxSpokenNo = int64(999_999_999_999_999)
)

var (
	smallNumbers = [...]string{
		"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
		"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
		"seventeen", "eighteen", "nineteen",
	}
	decades = [...]string{
		"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety",
	}
	scales = [...]string{"", " thousand", " million", " billion", " trillion"}
)

var irregularOrdinals = map[string]string{
	"one": "first", "two": "second", "three": "third", "five": "fifth",
	"eight": "eighth", "nine": "ninth", "twelve": "twelfth",
}

// expandEnglish spells out currency, percentages, clock times, ordinals and
// plain numbers. Order matters: the more specific patterns run first so a
// later pass never sees their digits.
func expandEnglish(text string) string {
	text = currencyRe.ReplaceAllStringFunc(text, spellCurrency)
	text = percentRe.ReplaceAllStringFunc(text, func(m string) string {
		num := strings.TrimSpace(strings.TrimSuffix(m, "%"))
		return spellDecimalOrInteger(num) + " percent"
	})
	text = timeRe.ReplaceAllStringFunc(text, spellTime)
	text = ordinalRe.ReplaceAllStringFunc(text, func(m string) string {
		return spellOrdinal(ordinalRe.FindStringSubmatch(m)[1])
	})
	text = groupedRe.ReplaceAllStringFunc(text, func(m string) string {
		return spellDecimalOrInteger(strings.ReplaceAll(m, ",", ""))
	})
	text = decimalRe.ReplaceAllStringFunc(text, spellDecimalOrInteger)
	return integerRe.ReplaceAllStringFunc(text, spellDigits)
}

// spellNumber renders 0 <= n <= maxSpokenNo in words.
func spellNumber(n int64) string {
	if n < 20 {
		return smallNumbers[n]
	}

	var groups []string
	for scale := 0; n > 0; scale++ {
		if g := int(n % 1000); g > 0 {
			groups = append([]string{spellHundreds(g) + scales[scale]}, groups...)
		}
		n /= 1000
	}
	return strings.Join(groups, " ")
}

func spellHundreds(n int) string {
	var parts []string
	if n >= 100 {
		parts = append(parts, smallNumbers[n/100]+" hundred")
		n %= 100
	}
	switch {
	case n == 0:
	case n < 20:
		parts = append(parts, smallNumbers[n])
	case n%10 == 0:
		parts = append(parts, decades[n/10])
	default:
		parts = append(parts, decades[n/10]+" "+smallNumbers[n%10])
	}
	return strings.Join(parts, " ")
}

// spellDigits reads a digit string as a number, or digit by digit when it is
// too long to be spoken as one.
func spellDigits(digits string) string {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n > maxSpokenNo {
		return spellEachDigit(digits)
	}
	return spellNumber(n)
}

func spellEachDigit(digits string) string {
	words := make([]string, 0, len(digits))
	for _, c := range digits {
		words = append(words, smallNumbers[c-'0'])
	}
	return strings.Join(words, " ")
}

func spellDecimalOrInteger(s string) string {
	whole, frac, ok := strings.Cut(s, ".")
	if !ok {
		return spellDigits(whole)
	}
	return spellDigits(whole) + " point " + spellEachDigit(frac)
}

func spellCurrency(m string) string {
	sub := currencyRe.FindStringSubmatch(m)
	dollars := strings.ReplaceAll(sub[1], ",", "")

	out := spellDigits(dollars)
	if dollars == "1" {
		out += " dollar"
	} else {
		out += " dollars"
	}
	if sub[2] != "" && sub[2] != "00" {
		cents, _ := strconv.Atoi(sub[2])
		out += " and " + spellNumber(int64(cents))
		if cents == 1 {
			out += " cent"
		} else {
			out += " cents"
		}
	}
	return out
}

func spellTime(m string) string {
	sub := timeRe.FindStringSubmatch(m)
	hour, _ := strconv.Atoi(sub[1])
	minute, _ := strconv.Atoi(sub[2])
	if hour > 23 || minute > 59 {
		return spellDigits(sub[1]) + " " + spellDigits(sub[2])
	}

	out := spellNumber(int64(hour))
	switch {
	case minute == 0 && sub[3] == "":
		out += " o'clock"
	case minute == 0:
	case minute < 10:
		out += " oh " + spellNumber(int64(minute))
	default:
		out += " " + spellNumber(int64(minute))
	}
	if sub[3] != "" {
		out += " " + strings.ToLower(sub[3][:1]) + " m"
	}
	return out
}

func spellOrdinal(digits string) string {
	cardinal := spellDigits(digits)
	head, last := "", cardinal
	if i := strings.LastIndexByte(cardinal, ' '); i >= 0 {
		head, last = cardinal[:i+1], cardinal[i+1:]
	}

	switch {
	case irregularOrdinals[last] != "":
		last = irregularOrdinals[last]
	case strings.HasSuffix(last, "y"):
		last = strings.TrimSuffix(last, "y") + "ieth"
	default:
		last += "th"
	}
	return head + last
}
