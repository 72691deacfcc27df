package relay

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeAsset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frame.png")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadClientPublish(t *testing.T) {
	var gotKey, gotImage, gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		gotKey = r.PostFormValue("key")
		gotImage = r.PostFormValue("image")
		gotName = r.PostFormValue("name")
		w.Write([]byte(`{"success":true,"data":{"url":"https://i.example.com/abc.png"}}`))
	}))
	defer srv.Close()

	url, err := NewUploadClient(srv.URL, "relay-key").Publish(context.Background(), writeAsset(t, "png-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://i.example.com/abc.png" {
		t.Fatalf("url = %q", url)
	}
	if gotKey != "relay-key" {
		t.Errorf("key = %q", gotKey)
	}
	if decoded, _ := base64.StdEncoding.DecodeString(gotImage); string(decoded) != "png-bytes" {
		t.Errorf("image payload = %q", gotImage)
	}
	if !strings.HasPrefix(gotName, "genvid_") || !strings.HasSuffix(gotName, ".png") {
		t.Errorf("name = %q", gotName)
	}
}

func TestUploadClientRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":{"message":"invalid key"}}`))
	}))
	defer srv.Close()

	_, err := NewUploadClient(srv.URL, "bad").Publish(context.Background(), writeAsset(t, "x"))
	if err == nil || !strings.Contains(err.Error(), "invalid key") {
		t.Fatalf("expect rejection error, got %v", err)
	}
}

func TestServerPublishAndServe(t *testing.T) {
	dir := t.TempDir()
	s := NewServer(dir, "")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	s.baseURL = srv.URL

	url, err := s.Publish(context.Background(), writeAsset(t, "staged-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d for %s", resp.StatusCode, url)
	}
	body := make([]byte, 64)
	n, _ := resp.Body.Read(body)
	if string(body[:n]) != "staged-bytes" {
		t.Fatalf("served body = %q", body[:n])
	}
}

func TestServerHealth(t *testing.T) {
	srv := httptest.NewServer(NewServer(t.TempDir(), "http://x").Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
