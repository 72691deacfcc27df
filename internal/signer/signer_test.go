package signer

import (
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"genvid/internal/core/domain"
)

func TestDeriveKeyGolden(t *testing.T) {
	key := deriveKey("wJalrXUtnFEMI", "19700101", "cn-north-1", "cv")
	if len(key) != 32 {
		t.Fatalf("derived key length = %d, want 32", len(key))
	}
	want := "352fe794c0882ee23be63d8a60901ef3c7086f6fe766bff2ea07aa791258c658"
	if got := hex.EncodeToString(key); got != want {
		t.Fatalf("derived key = %s, want %s", got, want)
	}
}

func TestDeriveKeyStableAndSensitive(t *testing.T) {
	base := hex.EncodeToString(deriveKey("wJalrXUtnFEMI", "19700101", "cn-north-1", "cv"))
	again := hex.EncodeToString(deriveKey("wJalrXUtnFEMI", "19700101", "cn-north-1", "cv"))
	if base != again {
		t.Fatalf("repeated derivation differs: %s vs %s", base, again)
	}

	variants := []struct {
		name                          string
		secret, date, region, service string
	}{
		{"secret", "other", "19700101", "cn-north-1", "cv"},
		{"date", "wJalrXUtnFEMI", "19700102", "cn-north-1", "cv"},
		{"region", "wJalrXUtnFEMI", "19700101", "cn-north-2", "cv"},
		{"service", "wJalrXUtnFEMI", "19700101", "cn-north-1", "nlp"},
	}
	for _, v := range variants {
		got := hex.EncodeToString(deriveKey(v.secret, v.date, v.region, v.service))
		if got == base {
			t.Errorf("changing %s did not change the derived key", v.name)
		}
	}

	// Spot-check two of the variants against fixed vectors.
	if got := hex.EncodeToString(deriveKey("wJalrXUtnFEMI", "19700102", "cn-north-1", "cv")); got != "d008ec5ea14ffec5d0aaa894348e3e2176fd80c4fa953183faad669284a608bd" {
		t.Errorf("date variant key = %s", got)
	}
	if got := hex.EncodeToString(deriveKey("wJalrXUtnFEMI", "19700101", "cn-north-2", "cv")); got != "3fea25ede0f0584921299f5cc5e34720e0710e14c9c2351e2f09f788e10e32e2" {
		t.Errorf("region variant key = %s", got)
	}
}

func TestSignGolden(t *testing.T) {
	creds := Credentials{AccessKey: "AKEXAMPLE", SecretKey: "wJalrXUtnFEMI"}
	scope := Scope{Region: "cn-north-1", Service: "cv"}
	headers := map[string]string{}
	body := []byte(`{"req_key":"demo_video"}`)

	err := Sign(creds, "POST", "https://visual.example.com?Action=SubmitTask&Version=2022-08-31",
		headers, body, scope, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if headers["Host"] != "visual.example.com" {
		t.Errorf("Host = %q", headers["Host"])
	}
	if headers["X-Date"] != "19700101T000000Z" {
		t.Errorf("X-Date = %q", headers["X-Date"])
	}
	if headers["Content-Type"] != "application/json" {
		t.Errorf("Content-Type = %q", headers["Content-Type"])
	}

	want := "HMAC-SHA256 Credential=AKEXAMPLE/19700101/cn-north-1/cv/request, " +
		"SignedHeaders=content-type;host;x-date, " +
		"Signature=fe378170c8a16a05cec369198031a7b4a379d5ccd39a4cb6257aba8fb42e12c5"
	if got := headers["Authorization"]; got != want {
		t.Fatalf("Authorization:\n%s\nwant:\n%s", got, want)
	}
}

func TestSignDeterministic(t *testing.T) {
	creds := Credentials{AccessKey: "AK", SecretKey: "SK"}
	scope := Scope{Region: "r", Service: "s"}
	body := []byte(`{}`)

	h1 := map[string]string{}
	h2 := map[string]string{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := Sign(creds, "POST", "https://api.example.com?b=2&a=1", h1, body, scope, now); err != nil {
		t.Fatal(err)
	}
	if err := Sign(creds, "POST", "https://api.example.com?a=1&b=2", h2, body, scope, now); err != nil {
		t.Fatal(err)
	}
	if h1["Authorization"] != h2["Authorization"] {
		t.Fatalf("query reordering changed the signature:\n%s\n%s", h1["Authorization"], h2["Authorization"])
	}
}

func TestSignPreservesCallerHeaders(t *testing.T) {
	headers := map[string]string{"X-Custom": "keep-me", "content-type": "text/plain"}
	err := Sign(Credentials{AccessKey: "AK", SecretKey: "SK"}, "POST",
		"https://api.example.com", headers, nil, Scope{Region: "r", Service: "s"}, time.Unix(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if headers["X-Custom"] != "keep-me" {
		t.Errorf("caller header was lost: %v", headers)
	}
	// Injected names overwrite caller-supplied values regardless of case.
	if _, ok := headers["content-type"]; ok {
		t.Errorf("case-variant content-type survived: %v", headers)
	}
	if headers["Content-Type"] != "application/json" {
		t.Errorf("Content-Type = %q", headers["Content-Type"])
	}
}

func TestSignEmptyCredentials(t *testing.T) {
	err := Sign(Credentials{}, "POST", "https://api.example.com", map[string]string{}, nil,
		Scope{Region: "r", Service: "s"}, time.Unix(0, 0))
	if !errors.Is(err, domain.ErrSigning) {
		t.Fatalf("expect signing error, got %v", err)
	}
}

func TestSignBadURL(t *testing.T) {
	err := Sign(Credentials{AccessKey: "AK", SecretKey: "SK"}, "POST", "://nope",
		map[string]string{}, nil, Scope{Region: "r", Service: "s"}, time.Unix(0, 0))
	if !errors.Is(err, domain.ErrSigning) {
		t.Fatalf("expect signing error, got %v", err)
	}
}
