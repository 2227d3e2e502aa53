// Copyright (c) 2025 BVK Chaitanya

package horizon

import (
	"fmt"
	"os"
	"time"

	"github.com/stellar/go/network"
)

type Options struct {
	// URL is the horizon server base url.
	URL string

	// Passphrase identifies the network transactions are signed for.
	Passphrase string

	// Timeout to use for the HTTP requests.
	HttpClientTimeout time.Duration

	// RequestsPerSecond limits the request rate to the horizon server.
	RequestsPerSecond float64

	// Max number of records fetched for offers and trades.
	PageLimit uint
}

func (v *Options) setDefaults() {
	if v.URL == "" {
		v.URL = "https://horizon-testnet.stellar.org/"
	}
	if v.Passphrase == "" {
		v.Passphrase = network.TestNetworkPassphrase
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 30 * time.Second
	}
	if v.RequestsPerSecond == 0 {
		v.RequestsPerSecond = 5
	}
	if v.PageLimit == 0 {
		v.PageLimit = 200
	}
}

func (v *Options) Check() error {
	if v.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative: %w", os.ErrInvalid)
	}
	if v.PageLimit > 200 {
		return fmt.Errorf("page limit %d cannot exceed 200: %w", v.PageLimit, os.ErrInvalid)
	}
	return nil
}

// Passphrase returns the network passphrase for a network name.
func Passphrase(name string) (string, error) {
	switch name {
	case "testnet":
		return network.TestNetworkPassphrase, nil
	case "public":
		return network.PublicNetworkPassphrase, nil
	}
	return "", fmt.Errorf("unknown network %q: %w", name, os.ErrInvalid)
}
