// Package zip321 parses ZIP 321 payment request URIs into the outputs a
// transaction must pay.
//
// URI Format:
//
//	zcash:<address>?amount=<amount>&memo=<base64url memo>&message=<message>
//
// Multiple payments use indexed parameters; index 0 may omit the suffix:
//
//	zcash:?address=<addr0>&amount=<amt0>&address.1=<addr1>&amount.1=<amt1>
//
// Amounts are decimal ZEC with at most eight fractional digits and are kept
// as exact zatoshi counts. Memos are base64url without padding and must not
// be given for transparent recipients.
//
// See: https://zips.z.cash/zip-0321
package zip321

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/suffix-labs/zcash-signer/pkg/crypto"
	"github.com/suffix-labs/zcash-signer/pkg/tx"
)

const (
	scheme   = "zcash:"
	maxIndex = 9999

	// ZatoshisPerZEC is the number of zatoshis in one ZEC.
	ZatoshisPerZEC = 100_000_000
)

// Errors returned by Parse.
var (
	ErrScheme         = errors.New("zip321: missing zcash: scheme")
	ErrNoPayments     = errors.New("zip321: request has no payments")
	ErrMissingAddress = errors.New("zip321: payment has no address")
	ErrAmount         = errors.New("zip321: invalid amount")
	ErrMemo           = errors.New("zip321: invalid memo")
	ErrDuplicateParam = errors.New("zip321: duplicate parameter")
	ErrRequiredParam  = errors.New("zip321: unsupported required parameter")
)

// PaymentRequest is a parsed ZIP 321 request.
type PaymentRequest struct {
	Payments []Payment // In index order
}

// Payment is one recipient of a request.
type Payment struct {
	Address string
	Amount  uint64 // zatoshis
	Memo    []byte // nil if absent; at most crypto.MemoSize bytes
	Label   string
	Message string
}

// IsTransparent reports whether the payment goes to a t-address.
func (p Payment) IsTransparent() bool {
	return strings.HasPrefix(p.Address, "t")
}

// Parse decodes a ZIP 321 URI.
func Parse(uri string) (*PaymentRequest, error) {
	rest, ok := strings.CutPrefix(uri, scheme)
	if !ok {
		return nil, ErrScheme
	}
	base, query, _ := strings.Cut(rest, "?")

	params, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("zip321: query: %w", err)
	}

	byIndex := make(map[int]*Payment)
	get := func(idx int) *Payment {
		p, ok := byIndex[idx]
		if !ok {
			p = new(Payment)
			byIndex[idx] = p
		}
		return p
	}
	if base != "" {
		get(0).Address = base
	}

	for key, values := range params {
		if len(values) != 1 {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateParam, key)
		}
		name, idx, err := splitParam(key)
		if err != nil {
			return nil, err
		}
		if base != "" && idx == 0 && name == "address" {
			return nil, fmt.Errorf("%w: address", ErrDuplicateParam)
		}
		if err := get(idx).set(name, values[0]); err != nil {
			return nil, fmt.Errorf("payment %d: %w", idx, err)
		}
	}

	if len(byIndex) == 0 {
		return nil, ErrNoPayments
	}
	indices := make([]int, 0, len(byIndex))
	for idx := range byIndex {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	req := &PaymentRequest{Payments: make([]Payment, 0, len(indices))}
	for _, idx := range indices {
		p := byIndex[idx]
		if p.Address == "" {
			return nil, fmt.Errorf("payment %d: %w", idx, ErrMissingAddress)
		}
		if p.Memo != nil && p.IsTransparent() {
			return nil, fmt.Errorf("payment %d: %w: memo for a transparent address", idx, ErrMemo)
		}
		req.Payments = append(req.Payments, *p)
	}
	return req, nil
}

// splitParam splits "amount.3" into ("amount", 3). A bare name is index 0.
func splitParam(key string) (string, int, error) {
	name, suffix, indexed := strings.Cut(key, ".")
	if !indexed {
		return name, 0, nil
	}
	// Indices have no leading zeros.
	if suffix == "" || (len(suffix) > 1 && suffix[0] == '0') {
		return "", 0, fmt.Errorf("zip321: bad parameter index in %q", key)
	}
	idx, err := strconv.Atoi(suffix)
	if err != nil || idx < 0 || idx > maxIndex {
		return "", 0, fmt.Errorf("zip321: bad parameter index in %q", key)
	}
	return name, idx, nil
}

func (p *Payment) set(name, value string) error {
	var err error
	switch name {
	case "address":
		p.Address = value
	case "amount":
		p.Amount, err = ParseAmount(value)
	case "memo":
		p.Memo, err = decodeMemo(value)
	case "label":
		p.Label = value
	case "message":
		p.Message = value
	default:
		if strings.HasPrefix(name, "req-") {
			return fmt.Errorf("%w: %s", ErrRequiredParam, name)
		}
	}
	return err
}

// ParseAmount converts a decimal ZEC amount to zatoshis.
func ParseAmount(s string) (uint64, error) {
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || len(frac) > 8 {
		return 0, fmt.Errorf("%w: %q", ErrAmount, s)
	}
	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrAmount, s)
	}
	var f uint64
	if frac != "" {
		if f, err = strconv.ParseUint(frac, 10, 64); err != nil {
			return 0, fmt.Errorf("%w: %q", ErrAmount, s)
		}
		for i := 0; i < 8-len(frac); i++ {
			f *= 10
		}
	}
	if w > tx.MaxMoney/ZatoshisPerZEC {
		return 0, fmt.Errorf("%w: %q exceeds the money supply", ErrAmount, s)
	}
	z := w*ZatoshisPerZEC + f
	if z > tx.MaxMoney {
		return 0, fmt.Errorf("%w: %q exceeds the money supply", ErrAmount, s)
	}
	return z, nil
}

// FormatAmount renders zatoshis as decimal ZEC without trailing zeros.
func FormatAmount(z uint64) string {
	s := fmt.Sprintf("%d.%08d", z/ZatoshisPerZEC, z%ZatoshisPerZEC)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func decodeMemo(s string) ([]byte, error) {
	memo, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMemo, err)
	}
	if len(memo) > crypto.MemoSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMemo, len(memo))
	}
	return memo, nil
}

// Encode renders the request as a URI. A single payment puts its address
// in the path.
func (req *PaymentRequest) Encode() string {
	if len(req.Payments) == 1 {
		p := req.Payments[0]
		params := p.params("")
		params.Del("address")
		uri := scheme + p.Address
		if len(params) > 0 {
			uri += "?" + params.Encode()
		}
		return uri
	}

	params := url.Values{}
	for i, p := range req.Payments {
		suffix := ""
		if i > 0 {
			suffix = "." + strconv.Itoa(i)
		}
		for k, v := range p.params(suffix) {
			params[k] = v
		}
	}
	return scheme + "?" + params.Encode()
}

func (p Payment) params(suffix string) url.Values {
	v := url.Values{}
	v.Set("address"+suffix, p.Address)
	if p.Amount > 0 {
		v.Set("amount"+suffix, FormatAmount(p.Amount))
	}
	if p.Memo != nil {
		v.Set("memo"+suffix, base64.RawURLEncoding.EncodeToString(p.Memo))
	}
	if p.Label != "" {
		v.Set("label"+suffix, p.Label)
	}
	if p.Message != "" {
		v.Set("message"+suffix, p.Message)
	}
	return v
}
