// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mtls provides TLS and mTLS client configuration support.
package mtls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"
)

var (
	ErrNoValidRootCertificate = errors.New("no valid root certificate")
	ErrMissingCertificate     = errors.New("missing certificate")
	ErrMissingKey             = errors.New("missing key")
)

// NewClientConfig returns a TLS configuration for use with an mTLS or TLS
// connection. If a root CA PEM block is provided it is used in place of the
// host's root certificates. If a certificate and key are provided they are
// presented to the server for mTLS. If all parameters are empty, a nil config
// will be returned.
func NewClientConfig(rootPEM, certPEMBlock, keyPEMBlock []byte) (*tls.Config, error) {
	if len(rootPEM) == 0 && len(certPEMBlock) == 0 && len(keyPEMBlock) == 0 {
		return nil, nil
	}
	var tlsConfig tls.Config
	if len(rootPEM) != 0 {
		caPool := x509.NewCertPool()
		ok := caPool.AppendCertsFromPEM(rootPEM)
		if !ok {
			return nil, ErrNoValidRootCertificate
		}
		tlsConfig.RootCAs = caPool
	}
	if len(certPEMBlock) != 0 || len(keyPEMBlock) != 0 {
		if len(certPEMBlock) == 0 {
			return nil, ErrMissingCertificate
		}
		if len(keyPEMBlock) == 0 {
			return nil, ErrMissingKey
		}
		cert, err := tls.X509KeyPair(certPEMBlock, keyPEMBlock)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return &tlsConfig, nil
}

// LoadClientConfig returns a client TLS configuration from the PEM files at
// the provided paths. Empty paths are ignored. See NewClientConfig for the
// configuration that is returned.
func LoadClientConfig(rootFile, certFile, keyFile string) (*tls.Config, error) {
	var pem [3][]byte
	for i, path := range []string{rootFile, certFile, keyFile} {
		if path == "" {
			continue
		}
		var err error
		pem[i], err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	return NewClientConfig(pem[0], pem[1], pem[2])
}
