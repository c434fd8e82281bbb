package codes

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePatientCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PX-AB12", "PX-AB-0000012"},
		{"PX-AB1", "PX-AB-0000001"},
		{"PX-AB123456", "PX-AB-0123456"},
		{"px-jd-7", "PX-JD-0000007"},
		{"PX-JD-0000001", "PX-JD-0000001"},
		{"  PX-JD-0000001 ", "PX-JD-0000001"},
		{"PX4", "PX4"},
		{"", ""},
		{"PATIENT-42", "PATIENT-42"},
		{"PX-AB12345678", "PX-AB12345678"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePatientCode(tt.in))
		})
	}
}

func TestNormalizePatientCode_Idempotent(t *testing.T) {
	for digits := 1; digits <= 6; digits++ {
		in := "PX-AB" + strings.Repeat("7", digits)
		once := NormalizePatientCode(in)

		assert.True(t, IsCanonicalPatientCode(once), "%s -> %s", in, once)
		assert.Equal(t, once, NormalizePatientCode(once))
	}

	for _, junk := range []string{"PX3", "abc", "PX-A1", " "} {
		assert.Equal(t, NormalizePatientCode(junk), NormalizePatientCode(NormalizePatientCode(junk)))
	}
}

func TestNormalizeTransactionCode(t *testing.T) {
	assert.Equal(t, "TX25-04-00007", NormalizeTransactionCode("TX25-04-7"))
	assert.Equal(t, "TX25-04-00007", NormalizeTransactionCode("tx25-04-7"))
	assert.Equal(t, "TX25-04-12345", NormalizeTransactionCode("TX25-04-12345"))
	assert.Equal(t, "TX2504-7", NormalizeTransactionCode("TX2504-7"))
	assert.Equal(t, "hello", NormalizeTransactionCode("hello"))

	for seq := 1; seq < 100000; seq *= 7 {
		in := fmt.Sprintf("TX24-12-%d", seq)
		once := NormalizeTransactionCode(in)
		assert.True(t, IsCanonicalTransactionCode(once))
		assert.Equal(t, once, NormalizeTransactionCode(once))
	}
}

func TestParseMultipleTransactionCodes(t *testing.T) {
	got := ParseMultipleTransactionCodes("TX25-04-7, TX25-04-00007;TX25-05-3  junk |TX25-04-7\tTX25-06-00001")
	assert.Equal(t, []string{"TX25-04-00007", "TX25-05-00003", "TX25-06-00001"}, got)

	assert.Empty(t, ParseMultipleTransactionCodes(""))
	assert.Empty(t, ParseMultipleTransactionCodes(" ; , "))

	codes, rejected := SplitTransactionCodes("TX25-01-1 N/A")
	assert.Equal(t, []string{"TX25-01-00001"}, codes)
	assert.Equal(t, []string{"N/A"}, rejected)
}

func TestMergeTransactionCodes(t *testing.T) {
	got := MergeTransactionCodes(
		[]string{"TX25-01-00001", "TX25-01-00002"},
		[]string{"TX25-01-00002", "TX25-01-00003"},
		nil,
	)
	assert.Equal(t, []string{"TX25-01-00001", "TX25-01-00002", "TX25-01-00003"}, got)
}

func TestGenerateNextCode(t *testing.T) {
	existing := []string{"PX-JD-0000001", "PX-JD-0000009", "PX-AB-0000050", "PX-JD-junk"}

	assert.Equal(t, "PX-JD-0000010", GenerateNextCode("PX-JD-", existing))
	assert.Equal(t, "PX-AB-0000051", GenerateNextCode("PX-AB-", existing))
	assert.Equal(t, "PX-ZZ-0000001", GenerateNextCode("PX-ZZ-", existing))
	assert.Equal(t, "PX-ZZ-0000001", GenerateNextCode("PX-ZZ-", nil))

	// Deterministic over the same snapshot.
	assert.Equal(t, GenerateNextCode("PX-JD-", existing), GenerateNextCode("PX-JD-", existing))

	tx := []string{"TX25-04-00009", "TX25-04-00002"}
	assert.Equal(t, "TX25-04-00010", GenerateNextCode("TX25-04-", tx))
	assert.Equal(t, "TX25-05-00001", GenerateNextCode("TX25-05-", tx))
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "JD", Initials("John", "Doe"))
	assert.Equal(t, "EB", Initials("Élodie", "Böhm"))
	assert.Equal(t, "MA", Initials("madonna", ""))
	assert.Equal(t, "DO", Initials("", "doe"))
	assert.Equal(t, "QX", Initials("Q", ""))
	assert.Equal(t, "XX", Initials("", ""))
	assert.Equal(t, "XX", Initials("李", "王"))
}

func TestPadLeft(t *testing.T) {
	assert.Equal(t, "00042", PadLeft("42", 5, '0'))
	assert.Equal(t, "123456", PadLeft("123456", 5, '0'))
}
