package internal

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func GenerateId() string {
	return uuid.Must(uuid.NewRandom()).String()
}

// DoRequest executes a JSON request and decodes a successful response body
// into v[0] if provided; the status code is always returned when a response
// was received
func DoRequest(client *http.Client, uri, method string, input interface{}, v ...interface{}) (int, []byte, error) {
	var body io.Reader

	switch v := input.(type) {
	default:
		byts, err := json.Marshal(input)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewBuffer(byts)
	case nil:
	case url.Values:
		uri += "?" + v.Encode()
	}
	request, err := http.NewRequest(method, uri, body)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	response, err := client.Do(request)
	if err != nil {
		return 0, nil, err
	}
	defer response.Body.Close()
	byts, err := io.ReadAll(response.Body)
	if err != nil {
		return response.StatusCode, nil, err
	}
	switch response.StatusCode {
	default:
		if len(byts) > 0 {
			return response.StatusCode, byts, errors.Errorf("%s: %s", response.Status, string(byts))
		}
		return response.StatusCode, byts, errors.Errorf("%s", response.Status)
	case http.StatusNoContent:
		return response.StatusCode, []byte{}, nil
	case http.StatusOK, http.StatusCreated:
		if len(v) > 0 {
			return response.StatusCode, byts, json.Unmarshal(byts, v[0])
		}
		return response.StatusCode, byts, nil
	}
}

func GetCertificates(certFile, keyFile string) ([]tls.Certificate, error) {
	if certFile == "" || keyFile == "" {
		return []tls.Certificate{}, nil
	}
	bytesCert, err := os.ReadFile(certFile)
	if err != nil {
		return nil, err
	}
	bytesKey, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, err
	}
	certificate, err := tls.X509KeyPair(bytesCert, bytesKey)
	if err != nil {
		return nil, err
	}
	return []tls.Certificate{certificate}, nil
}

func GetCaCert(caCertFile string) (*x509.CertPool, error) {
	caCertPool := x509.NewCertPool()
	if caCertFile == "" {
		return caCertPool, nil
	}
	bytes, err := os.ReadFile(caCertFile)
	if err != nil {
		return nil, err
	}
	caCertPool.AppendCertsFromPEM(bytes)
	return caCertPool, nil
}

// GetTransport returns a plain transport unless a ca file is configured, in
// which case the transport verifies against it and presents the optional
// client certificate
func GetTransport(caCertFile, certFile, keyFile string) (*http.Transport, error) {
	if caCertFile == "" {
		return &http.Transport{Proxy: http.ProxyFromEnvironment}, nil
	}
	caCertPool, err := GetCaCert(caCertFile)
	if err != nil {
		return nil, err
	}
	certificates, err := GetCertificates(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			// TLS versions below 1.2 are considered insecure
			// see https://www.rfc-editor.org/rfc/rfc7525.txt for details
			MinVersion:   tls.VersionTLS12,
			RootCAs:      caCertPool,
			Certificates: certificates,
		},
	}, nil
}
