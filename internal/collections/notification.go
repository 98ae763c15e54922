package collections

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrBadCredentials rejects notifications with wrong shared credentials
	// or an unknown short code.
	ErrBadCredentials = errors.New("invalid notification credentials")
	// ErrBadHash rejects notifications whose integrity hash does not match.
	ErrBadHash = errors.New("notification hash mismatch")
	// ErrBadAmount rejects notifications with an unparseable amount.
	ErrBadAmount = errors.New("invalid notification amount")
)

// Notification is a provider-push payment report for a paybill short code.
// All fields arrive as strings on the wire.
type Notification struct {
	TransType         string `json:"TransType"`
	TransID           string `json:"TransID"`
	TransTime         string `json:"TransTime"`
	TransAmount       string `json:"TransAmount"`
	BusinessShortCode string `json:"BusinessShortCode"`
	BillRefNumber     string `json:"BillRefNumber"`
	MSISDN            string `json:"MSISDN"`
	FirstName         string `json:"FirstName"`
	Username          string `json:"UserName"`
	Password          string `json:"Password"`
	Hash              string `json:"Hash"`
}

// Ack is the provider acknowledgement. "0" accepts, "1" rejects.
type Ack struct {
	ResultCode string `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// Accepted builds a positive acknowledgement.
func Accepted(desc string) Ack { return Ack{ResultCode: "0", ResultDesc: desc} }

// Rejected builds a negative acknowledgement. The provider does not retry
// rejections.
func Rejected(desc string) Ack { return Ack{ResultCode: "1", ResultDesc: desc} }

// Credentials are the shared secrets the provider signs notifications with.
type Credentials struct {
	ShortCode string
	Username  string
	Password  string
	SecretKey string
	// AccountNumber, when set, is the only account half accepted in
	// BillRefNumber.
	AccountNumber string
}

// Validate checks credentials, short code and integrity hash. All string
// comparisons are constant time.
func (n Notification) Validate(creds Credentials) error {
	ok := constantEq(n.Username, creds.Username) &
		constantEq(n.Password, creds.Password) &
		constantEq(n.BusinessShortCode, creds.ShortCode)
	if ok != 1 {
		return ErrBadCredentials
	}
	if constantEq(n.Hash, n.expectedHash(creds.SecretKey)) != 1 {
		return ErrBadHash
	}
	return nil
}

// expectedHash is base64 of the hex digest of sha256 over the canonical field
// concatenation, terminated by the literal "1".
func (n Notification) expectedHash(secret string) string {
	var b strings.Builder
	b.WriteString(secret)
	b.WriteString(n.TransType)
	b.WriteString(n.TransID)
	b.WriteString(n.TransTime)
	b.WriteString(n.TransAmount)
	b.WriteString(n.BusinessShortCode)
	b.WriteString(n.BillRefNumber)
	b.WriteString(n.MSISDN)
	b.WriteString(n.FirstName)
	b.WriteString("1")
	sum := sha256.Sum256([]byte(b.String()))
	return base64.StdEncoding.EncodeToString([]byte(hex.EncodeToString(sum[:])))
}

// AmountCents parses the wire amount into minor units.
func (n Notification) AmountCents() (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(n.TransAmount), 64)
	if err != nil || f <= 0 {
		return 0, ErrBadAmount
	}
	return int64(math.Round(f * 100)), nil
}

// AccountParts splits the bill reference "<account><sep><partnerID>" using
// the configured separator. The partner id is the last segment.
func (n Notification) AccountParts(separator string) (account, partnerID string, ok bool) {
	ref := strings.TrimSpace(n.BillRefNumber)
	idx := strings.LastIndex(ref, separator)
	if separator == "" || idx <= 0 || idx+len(separator) >= len(ref) {
		return "", "", false
	}
	return ref[:idx], ref[idx+len(separator):], true
}

func constantEq(a, b string) int {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b))
}
