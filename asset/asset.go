// Copyright (c) 2025 BVK Chaitanya

// Package asset defines the ledger asset identity. An asset is either the
// network's native currency or a credit asset issued by an account.
package asset

import (
	"fmt"
	"os"
	"strings"
)

type Kind string

const (
	KindNative    Kind = "native"
	KindCredit4   Kind = "credit_alphanum4"
	KindCredit12  Kind = "credit_alphanum12"
	nativeKeyword      = "native"
)

// Asset is a comparable value type. Zero value is the native asset.
type Asset struct {
	Code   string
	Issuer string
}

var Native = Asset{}

// Credit returns a credit asset issued by the issuer account.
func Credit(code, issuer string) Asset {
	return Asset{Code: code, Issuer: issuer}
}

func (a Asset) IsNative() bool {
	return a.Code == "" && a.Issuer == ""
}

func (a Asset) Kind() Kind {
	if a.IsNative() {
		return KindNative
	}
	if len(a.Code) <= 4 {
		return KindCredit4
	}
	return KindCredit12
}

// Equal returns true if both assets have the same kind, code and issuer.
func (a Asset) Equal(b Asset) bool {
	return a.Kind() == b.Kind() && a.Code == b.Code && a.Issuer == b.Issuer
}

func (a Asset) String() string {
	if a.IsNative() {
		return nativeKeyword
	}
	return a.Code + ":" + a.Issuer
}

func (a Asset) Check() error {
	if a.IsNative() {
		return nil
	}
	if len(a.Code) == 0 || len(a.Code) > 12 {
		return fmt.Errorf("asset code %q must have 1-12 characters: %w", a.Code, os.ErrInvalid)
	}
	for _, r := range a.Code {
		if !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return fmt.Errorf("asset code %q must be alphanumeric: %w", a.Code, os.ErrInvalid)
		}
	}
	if len(a.Issuer) == 0 {
		return fmt.Errorf("credit asset %q has no issuer: %w", a.Code, os.ErrInvalid)
	}
	return nil
}

// Parse parses "native" or "CODE:ISSUER" text form into an asset.
func Parse(s string) (Asset, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, nativeKeyword) || strings.EqualFold(s, "xlm") {
		return Native, nil
	}
	code, issuer, ok := strings.Cut(s, ":")
	if !ok {
		return Asset{}, fmt.Errorf("asset %q must be native or CODE:ISSUER: %w", s, os.ErrInvalid)
	}
	a := Credit(code, issuer)
	if err := a.Check(); err != nil {
		return Asset{}, err
	}
	return a, nil
}

func (a Asset) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Asset) UnmarshalText(data []byte) error {
	v, err := Parse(string(data))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
