// Package checks implements check handlers for the smoketest engine.
// This file contains the certificate store check and the directory-backed
// certificate store used outside of tests.
package checks

import (
	"context"
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"smoketest/pkg/failure"
)

const TypeCertificateExists = "certificate_exists"

// Store locations understood by CertificateExists.
const (
	LocationLocalMachine = "LocalMachine"
	LocationCurrentUser  = "CurrentUser"
)

var storeLocations = []string{LocationLocalMachine, LocationCurrentUser}

var storeNames = []string{
	"AddressBook", "AuthRoot", "CertificateAuthority", "Disallowed",
	"My", "Root", "TrustedPeople", "TrustedPublisher",
}

var keyUsageNames = map[string]x509.KeyUsage{
	"digitalsignature":   x509.KeyUsageDigitalSignature,
	"nonrepudiation":     x509.KeyUsageContentCommitment,
	"contentcommitment":  x509.KeyUsageContentCommitment,
	"keyencipherment":    x509.KeyUsageKeyEncipherment,
	"dataencipherment":   x509.KeyUsageDataEncipherment,
	"keyagreement":       x509.KeyUsageKeyAgreement,
	"certificatesigning": x509.KeyUsageCertSign,
	"keycertsign":        x509.KeyUsageCertSign,
	"crlsigning":         x509.KeyUsageCRLSign,
	"crlsign":            x509.KeyUsageCRLSign,
	"encipheronly":       x509.KeyUsageEncipherOnly,
	"decipheronly":       x509.KeyUsageDecipherOnly,
}

// DefaultCertificateRoot is where DirectoryStore looks when no root is
// configured.
var DefaultCertificateRoot = defaultCertificateRoot()

func defaultCertificateRoot() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "certificates")
	}
	return filepath.Join(dir, "smoketest", "certificates")
}

// DirectoryStore reads certificates from
// <Root>/<location>/<store>/*.{pem,crt,cer,der}, with location and store
// lowercased. Files may hold PEM (any number of CERTIFICATE blocks) or DER.
type DirectoryStore struct {
	Root string
}

// Certificates implements CertificateStore. Files that cannot be parsed are
// logged and skipped.
func (s DirectoryStore) Certificates(location, store string) ([]*x509.Certificate, error) {
	dir := filepath.Join(s.Root, strings.ToLower(location), strings.ToLower(store))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open certificate store %s: %w", dir, err)
	}

	var certs []*x509.Certificate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".pem", ".crt", ".cer", ".der":
		default:
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Skipping unreadable certificate file", "path", path, "error", err)
			continue
		}
		parsed, err := parseCertificates(data)
		if err != nil {
			slog.Warn("Skipping malformed certificate file", "path", path, "error", err)
			continue
		}
		certs = append(certs, parsed...)
	}
	return certs, nil
}

func parseCertificates(data []byte) ([]*x509.Certificate, error) {
	if !strings.Contains(string(data), "-----BEGIN") {
		cert, err := x509.ParseCertificate(data)
		if err != nil {
			return nil, err
		}
		return []*x509.Certificate{cert}, nil
	}

	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, errors.New("no CERTIFICATE block found")
	}
	return certs, nil
}

// CertificateExists asserts that a store holds a certificate matching every
// configured filter.
type CertificateExists struct {
	Base          `yaml:",inline"`
	StoreLocation string `yaml:"store_location"`
	StoreName     string `yaml:"store_name"`
	Thumbprint    string `yaml:"thumbprint,omitempty"`
	SubjectName   string `yaml:"subject_name,omitempty"`
	IssuerName    string `yaml:"issuer_name,omitempty"`
	SerialNumber  string `yaml:"serial_number,omitempty"`
	KeyUsage      string `yaml:"key_usage,omitempty"`
}

func (c *CertificateExists) Type() string { return TypeCertificateExists }

func (c *CertificateExists) Fields() []Field {
	const category = "Certificate Store Properties"
	return []Field{
		nameField(&c.Base),
		{Name: "store_location", Description: "The location of the store (LocalMachine or CurrentUser)", Category: category, Required: true, Value: c.StoreLocation},
		{Name: "store_name", Description: "The store to get the certificate from", Category: category, Required: true, Value: c.StoreName},
		{Name: "thumbprint", Description: "The certificate thumbprint (SHA-1, hex)", Category: category, Value: c.Thumbprint},
		{Name: "subject_name", Description: "The certificate subject name (CN)", Category: category, Value: c.SubjectName},
		{Name: "issuer_name", Description: "The certificate issuer name", Category: category, Value: c.IssuerName},
		{Name: "serial_number", Description: "The certificate serial number (hex)", Category: category, Value: c.SerialNumber},
		{Name: "key_usage", Description: "Comma separated key usages, e.g. Certificate Signing", Category: category, Value: c.KeyUsage},
	}
}

func (c *CertificateExists) Validate() error {
	if !containsFold(storeLocations, c.StoreLocation) {
		return failure.Configuration(c.Type(), "unknown store location %q, expected one of %s",
			c.StoreLocation, strings.Join(storeLocations, ", "))
	}
	if !containsFold(storeNames, c.StoreName) {
		return failure.Configuration(c.Type(), "unknown store name %q, expected one of %s",
			c.StoreName, strings.Join(storeNames, ", "))
	}
	if c.Thumbprint == "" && c.SubjectName == "" && c.IssuerName == "" && c.SerialNumber == "" && c.KeyUsage == "" {
		return failure.Configuration(c.Type(), "at least one of thumbprint, subject_name, issuer_name, serial_number or key_usage must be set")
	}
	if _, err := parseKeyUsage(c.KeyUsage); err != nil {
		return failure.WithOrigin(err, c.Type())
	}
	return nil
}

func (c *CertificateExists) Run(ctx context.Context, env *Environment) error {
	usage, err := parseKeyUsage(c.KeyUsage)
	if err != nil {
		return failure.WithOrigin(err, c.Type())
	}

	certs, err := env.certificates().Certificates(c.StoreLocation, c.StoreName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return failure.Assertion(c.Type(), "certificate store %s/%s does not exist", c.StoreLocation, c.StoreName)
		}
		return failure.Probe(c.Type(), err, "could not open certificate store %s/%s", c.StoreLocation, c.StoreName)
	}

	slog.Debug("Searching certificate store", "location", c.StoreLocation, "store", c.StoreName, "certificates", len(certs))

	for _, cert := range certs {
		if c.matches(cert, usage) {
			slog.Debug("Certificate found", "subject", cert.Subject.String(), "serial", cert.SerialNumber.Text(16))
			return nil
		}
	}
	return failure.Assertion(c.Type(), "no certificate in %s/%s matches %s",
		c.StoreLocation, c.StoreName, c.describeFilters())
}

func (c *CertificateExists) matches(cert *x509.Certificate, usage x509.KeyUsage) bool {
	if c.Thumbprint != "" {
		sum := sha1.Sum(cert.Raw)
		if !strings.EqualFold(hex.EncodeToString(sum[:]), normalizeHex(c.Thumbprint)) {
			return false
		}
	}
	if c.SerialNumber != "" {
		if !strings.EqualFold(cert.SerialNumber.Text(16), normalizeSerial(c.SerialNumber)) {
			return false
		}
	}
	if c.SubjectName != "" && !nameMatches(cert.Subject.CommonName, cert.Subject.String(), c.SubjectName) {
		return false
	}
	if c.IssuerName != "" && !nameMatches(cert.Issuer.CommonName, cert.Issuer.String(), c.IssuerName) {
		return false
	}
	return cert.KeyUsage&usage == usage
}

func (c *CertificateExists) describeFilters() string {
	var parts []string
	add := func(name, value string) {
		if value != "" {
			parts = append(parts, fmt.Sprintf("%s=%q", name, value))
		}
	}
	add("thumbprint", c.Thumbprint)
	add("subject_name", c.SubjectName)
	add("issuer_name", c.IssuerName)
	add("serial_number", c.SerialNumber)
	add("key_usage", c.KeyUsage)
	return strings.Join(parts, " ")
}

func (c *CertificateExists) Examples() []Check {
	return []Check{
		&CertificateExists{
			StoreLocation: LocationLocalMachine,
			StoreName:     "Root",
			IssuerName:    "Microsoft Root Certificate Authority",
		},
		&CertificateExists{
			StoreLocation: LocationCurrentUser,
			StoreName:     "Root",
			IssuerName:    "Microsoft Root Certificate Authority",
			SubjectName:   "Microsoft Code Signing PCA",
		},
		&CertificateExists{
			StoreLocation: LocationCurrentUser,
			StoreName:     "AddressBook",
			IssuerName:    "Mr. X's Certificates",
			SerialNumber:  "ABCD1234",
		},
		&CertificateExists{
			StoreLocation: LocationCurrentUser,
			StoreName:     "TrustedPublisher",
			IssuerName:    "GeoTrust Global CA",
			KeyUsage:      "Certificate Signing",
		},
	}
}

// KeyUsageNames lists the names accepted in key_usage.
func KeyUsageNames() []string {
	names := make([]string, 0, len(keyUsageNames))
	for name := range keyUsageNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseKeyUsage(spec string) (x509.KeyUsage, error) {
	var usage x509.KeyUsage
	if strings.TrimSpace(spec) == "" {
		return usage, nil
	}
	for _, part := range strings.Split(spec, ",") {
		key := strings.ToLower(strings.Join(strings.Fields(part), ""))
		if key == "" {
			continue
		}
		bit, ok := keyUsageNames[key]
		if !ok {
			return 0, failure.Configuration("", "unknown key usage %q", strings.TrimSpace(part))
		}
		usage |= bit
	}
	return usage, nil
}

// normalizeSerial drops leading zeros but keeps a lone zero.
func normalizeSerial(s string) string {
	s = normalizeHex(s)
	if trimmed := strings.TrimLeft(s, "0"); trimmed != "" || s == "" {
		return trimmed
	}
	return "0"
}

// normalizeHex strips the separators that appear when thumbprints and serial
// numbers are copied out of certificate viewers.
func normalizeHex(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', ':', '-', '\u200e', '\u200f':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func nameMatches(commonName, distinguished, want string) bool {
	want = strings.TrimSpace(want)
	if strings.EqualFold(commonName, want) {
		return true
	}
	return strings.Contains(strings.ToLower(distinguished), strings.ToLower(want))
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
