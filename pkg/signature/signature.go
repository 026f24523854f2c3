// Package signature verifies signed chat payloads.
//
// A signed object carries publicKey and signature fields; the signature
// covers the canonical JSON of the object with those two fields removed
// and keys sorted. Keys are P-256 points and signatures raw r||s pairs,
// both base64 encoded, matching the WebCrypto conventions of the clients.
package signature

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
)

const (
	// FieldPublicKey and FieldSignature are stripped before canonicalization.
	FieldPublicKey = "publicKey"
	FieldSignature = "signature"

	rawSignatureLen = 64
)

// Canonicalize returns the canonical JSON of payload: signature and
// publicKey removed, object keys sorted at every level, no HTML escaping,
// numbers kept in their wire form.
func Canonicalize(payload map[string]any) ([]byte, error) {
	stripped := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == FieldPublicKey || k == FieldSignature {
			continue
		}
		stripped[k] = v
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, stripped); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeScalar(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case json.Number:
		buf.WriteString(val.String())
		return nil

	default:
		return writeScalar(buf, v)
	}
}

func writeScalar(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode appends a newline; canonical form has none.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// ParsePublicKey decodes a base64 uncompressed P-256 point.
func ParsePublicKey(encoded string) (*ecdsa.PublicKey, error) {
	raw, err := decodeBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}

	x, y := elliptic.Unmarshal(elliptic.P256(), raw)
	if x == nil {
		return nil, fmt.Errorf("invalid P-256 point")
	}
	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}

// Verify checks a signed payload. The payload must carry publicKey and
// signature; everything else is covered by the signature.
func Verify(payload map[string]any) (bool, error) {
	pubEncoded, _ := payload[FieldPublicKey].(string)
	sigEncoded, _ := payload[FieldSignature].(string)
	if pubEncoded == "" || sigEncoded == "" {
		return false, fmt.Errorf("payload is not signed")
	}

	pub, err := ParsePublicKey(pubEncoded)
	if err != nil {
		return false, err
	}

	sig, err := decodeBase64(sigEncoded)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != rawSignatureLen {
		return false, fmt.Errorf("signature must be %d bytes, got %d", rawSignatureLen, len(sig))
	}

	canonical, err := Canonicalize(payload)
	if err != nil {
		return false, fmt.Errorf("canonicalize payload: %w", err)
	}

	digest := sha256.Sum256(canonical)
	r := new(big.Int).SetBytes(sig[:rawSignatureLen/2])
	s := new(big.Int).SetBytes(sig[rawSignatureLen/2:])

	return ecdsa.Verify(pub, digest[:], r, s), nil
}

// VerifyRaw unmarshals a JSON object and verifies it. Numbers are kept in
// wire form so re-serialization cannot change the signed bytes.
func VerifyRaw(data []byte) (bool, error) {
	payload, err := DecodeObject(data)
	if err != nil {
		return false, err
	}
	return Verify(payload)
}

// DecodeObject unmarshals a JSON object preserving number representations.
func DecodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}

// decodeBase64 accepts both standard and URL-safe alphabets, with or
// without padding.
func decodeBase64(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("invalid base64")
}
