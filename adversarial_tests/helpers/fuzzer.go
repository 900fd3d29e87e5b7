package helpers

import (
	"math/rand"
	"strings"
	"unicode"
)

// Fuzzer provides utilities for generating adversarial input strings
type Fuzzer struct {
	rnd *rand.Rand
}

// NewFuzzer creates a new Fuzzer with the given seed
func NewFuzzer(seed int64) *Fuzzer {
	return &Fuzzer{
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// FuzzTweetID generates malformed snowflake ids. None of them is a valid id.
func (f *Fuzzer) FuzzTweetID() []string {
	return []string{
		// Empty and boundary cases
		"",
		" ",
		"12345678901234567890", // 20 digits, one past the limit
		strings.Repeat("9", 100),

		// Signs, decimals and notation
		"-20",
		"+20",
		"20.0",
		"2e10",
		"0x14",

		// Whitespace around a valid id
		" 20",
		"20 ",
		"20\n",
		"\t20",

		// Path manipulation
		"20/likes",
		"../20",
		"20?expansions=author_id",
		"20#fragment",
		"20%2F..",
		"..%2F..%2F2%2Fusers%2Fme",

		// URL forms people paste
		"https://twitter.com/XDevelopers/status/20",
		"twitter.com/i/web/status/20",

		// Unicode digits that are not ASCII
		"٢٠",       // Arabic-Indic
		"２０",       // Fullwidth
		"20\u200b", // Trailing zero-width space

		// Control characters
		"20\x00",
		"\x0020",

		// Injection attempts
		"20'; DROP TABLE tweets--",
		"20 OR 1=1",
		"<script>20</script>",
	}
}

// FuzzUsername generates handles that must be rejected after a leading @ is removed.
func (f *Fuzzer) FuzzUsername() []string {
	return []string{
		"",
		"@",
		"@@XDevelopers",
		"sixteen_chars_xx", // One char too long
		strings.Repeat("a", 100),

		// Characters outside [A-Za-z0-9_]
		"x-developers",
		"x.developers",
		"x developers",
		"x+developers",
		"x/developers",
		"x#developers",

		// Path manipulation
		"../me",
		"me/../../2/tweets",
		"XDevelopers?user.fields=id",

		// Unicode look-alikes
		"XDеvelopers", // Cyrillic е
		"тест",
		"🚀rocket",
		"XDev\u200bs",
		"XDev\u202es",

		// Control characters
		"XDev\x00s",
		"XDev\ns",
		"XDev\ts",
	}
}

// FuzzUserAgent generates malicious User-Agent test cases
func (f *Fuzzer) FuzzUserAgent() []string {
	return []string{
		// Empty
		"",

		// Header injection via newlines
		"MyApp/1.0\nX-Evil-Header: injected",
		"MyApp/1.0\rX-Evil-Header: injected",
		"MyApp/1.0\r\nX-Evil-Header: injected",
		"MyApp/1.0\n\nInjected Body",

		// Extremely long
		strings.Repeat("a", 257),   // One over limit
		strings.Repeat("a", 10000), // Way over limit

		// Control characters
		"MyApp\x00/1.0",
		"MyApp\x1B/1.0",
		"MyApp\x7F/1.0",
		"\x00MyApp/1.0",

		// Mixed injection attempts
		"MyApp/1.0\r\nContent-Length: 0\r\n\r\nGET /evil HTTP/1.1",
		"MyApp/1.0\nAuthorization: Bearer stolen",
	}
}

// FuzzTweetText generates tweet bodies that must be rejected before any request.
func (f *Fuzzer) FuzzTweetText() []string {
	return []string{
		"",
		" ",
		"\n\t\n",
		strings.Repeat("a", 281),
		strings.Repeat("é", 281), // Counted in characters, not bytes
		strings.Repeat("🚀", 281), // Astral plane characters
	}
}

// AcceptedTweetText generates bodies at or under the limit that must pass.
func (f *Fuzzer) AcceptedTweetText() []string {
	return []string{
		"a",
		strings.Repeat("a", 280),
		strings.Repeat("é", 280),
		strings.Repeat("🚀", 280),
		"line one\nline two",
		"<script>alert('xss')</script>",
		"'; DROP TABLE tweets--",
		"#golang @XDevelopers https://go.dev",
	}
}

// FuzzMaxResults generates adversarial page sizes
func (f *Fuzzer) FuzzMaxResults() []int {
	return []int{
		-1,
		-100,
		-2147483648, // int32 min
		1,
		4,   // One under the timeline minimum
		101, // One over max
		1000,
		2147483647, // int32 max
	}
}

// GenerateRandomString generates a random string of the given length with specified character types
func (f *Fuzzer) GenerateRandomString(length int, includeSpecial bool) string {
	const (
		letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
		special = "!@#$%^&*()_+-=[]{}|;':\",./<>?`~"
	)

	charset := letters
	if includeSpecial {
		charset += special
	}

	result := make([]byte, length)
	for i := range result {
		result[i] = charset[f.rnd.Intn(len(charset))]
	}
	return string(result)
}

// GenerateControlCharString generates a string with various control characters
func (f *Fuzzer) GenerateControlCharString() []string {
	controlChars := []rune{}
	for i := 0; i < 32; i++ {
		controlChars = append(controlChars, rune(i))
	}
	controlChars = append(controlChars, 127) // DEL

	var results []string
	for _, char := range controlChars {
		if unicode.IsControl(char) {
			results = append(results, string(char))
			results = append(results, "test"+string(char)+"string")
			results = append(results, string(char)+"teststring")
			results = append(results, "teststring"+string(char))
		}
	}
	return results
}

// GenerateUnicodeAttacks generates strings with various Unicode attack patterns
func (f *Fuzzer) GenerateUnicodeAttacks() []string {
	return []string{
		// Zero-width characters
		"test\u200bstring", // Zero-width space
		"test\u200cstring", // Zero-width non-joiner
		"test\u200dstring", // Zero-width joiner
		"test\ufeffstring", // Zero-width no-break space

		// Direction overrides
		"test\u202estring", // Right-to-left override
		"test\u202dstring", // Left-to-right override

		// Combining characters
		"test\u0301string",    // Combining acute accent
		"a\u0301\u0302\u0303", // Multiple combining marks

		// Homoglyphs
		"gооgle", // Cyrillic о instead of Latin o
		"аpple",  // Cyrillic а instead of Latin a

		// Null and control in Unicode
		"test\u0000string", // Null character
		"test\u0001string", // Start of heading
	}
}
