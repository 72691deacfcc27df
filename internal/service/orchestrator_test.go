package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"genvid/internal/adapters/ark"
	"genvid/internal/core/domain"
	"genvid/internal/core/ports"
	"genvid/internal/polling"
)

type fakeArk struct {
	handle  domain.TaskHandle
	err     error
	updates []domain.StatusUpdate
	calls   int

	gotModel   string
	gotContent []ark.ContentItem
}

func (f *fakeArk) CreateTask(ctx context.Context, model string, content []ark.ContentItem) (domain.TaskHandle, error) {
	f.gotModel = model
	f.gotContent = content
	return f.handle, f.err
}

func (f *fakeArk) Check(ctx context.Context, taskID string) (domain.StatusUpdate, error) {
	i := f.calls
	f.calls++
	if i >= len(f.updates) {
		i = len(f.updates) - 1
	}
	return f.updates[i], nil
}

type scripted struct {
	updates []domain.StatusUpdate
	calls   int
}

func (s *scripted) Check(ctx context.Context, taskID string) (domain.StatusUpdate, error) {
	i := s.calls
	s.calls++
	if i >= len(s.updates) {
		i = len(s.updates) - 1
	}
	return s.updates[i], nil
}

type fakeVisual struct {
	roleHandle  domain.TaskHandle
	roleErr     error
	videoHandle domain.TaskHandle
	videoErr    error
	roleCheck   *scripted
	videoCheck  *scripted

	videoSubmitted bool
}

func (f *fakeVisual) SubmitRole(ctx context.Context, imageURL string) (domain.TaskHandle, error) {
	return f.roleHandle, f.roleErr
}

func (f *fakeVisual) SubmitVideo(ctx context.Context, imageURL, audioURL string) (domain.TaskHandle, error) {
	f.videoSubmitted = true
	return f.videoHandle, f.videoErr
}

func (f *fakeVisual) RoleStatus() ports.StatusChecker  { return f.roleCheck }
func (f *fakeVisual) VideoStatus() ports.StatusChecker { return f.videoCheck }

type fakeUploader struct{ published []string }

func (f *fakeUploader) Publish(ctx context.Context, localPath string) (string, error) {
	f.published = append(f.published, localPath)
	return "https://relay.example.com/" + filepath.Base(localPath), nil
}

type fakeDownloader struct {
	gotURL string
	err    error
}

func (f *fakeDownloader) Fetch(ctx context.Context, url, destPath string) error {
	f.gotURL = url
	return f.err
}

type memStorage struct{ base string }

func (m *memStorage) InitJob(ctx context.Context, jobID string) error { return nil }
func (m *memStorage) SaveInput(ctx context.Context, jobID string, data []byte) error {
	return nil
}
func (m *memStorage) Stage(ctx context.Context, jobID, srcPath, filename string) (string, error) {
	return filepath.Join(m.base, jobID, filename), nil
}
func (m *memStorage) ArtifactPath(jobID, filename string) string {
	return filepath.Join(m.base, jobID, filename)
}
func (m *memStorage) JobPath(jobID string) string { return filepath.Join(m.base, jobID) }

type memRecorder struct{ recorded []domain.JobResult }

func (m *memRecorder) Record(ctx context.Context, res domain.JobResult) error {
	m.recorded = append(m.recorded, res)
	return nil
}

func newTestOrchestrator(arkAPI ArkAPI, visualAPI VisualAPI, dl ports.Downloader, rec ports.Recorder) (*Orchestrator, *fakeUploader) {
	up := &fakeUploader{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	poller := polling.New(5, time.Millisecond, log)
	return NewOrchestrator(arkAPI, visualAPI, up, dl, &memStorage{base: "/data"}, poller, rec, log), up
}

func TestGenerateHappyPath(t *testing.T) {
	arkAPI := &fakeArk{
		handle: domain.TaskHandle{TaskID: "t-1"},
		updates: []domain.StatusUpdate{
			{Status: domain.StatusRunning, Progress: 10},
			{Status: domain.StatusSucceeded, Result: "https://cdn.example.com/v.mp4", Progress: 100},
		},
	}
	dl := &fakeDownloader{}
	rec := &memRecorder{}
	o, up := newTestOrchestrator(arkAPI, nil, dl, rec)

	res, err := o.Generate(context.Background(), GenerateRequest{
		ImagePath:  "/tmp/frame.png",
		Prompt:     "a cat in the rain",
		Model:      "seedance-pro",
		Resolution: "1080p",
		Duration:   "5s",
		Seed:       -1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.ArtifactPath == "" || !strings.HasSuffix(res.ArtifactPath, "video.mp4") {
		t.Errorf("artifact path = %q", res.ArtifactPath)
	}
	if dl.gotURL != "https://cdn.example.com/v.mp4" {
		t.Errorf("downloaded url = %q", dl.gotURL)
	}
	if arkAPI.gotModel != "seedance-pro" {
		t.Errorf("model = %q", arkAPI.gotModel)
	}
	if len(arkAPI.gotContent) != 2 || arkAPI.gotContent[0].Type != "text" || arkAPI.gotContent[1].Type != "image_url" {
		t.Errorf("content = %+v", arkAPI.gotContent)
	}
	wantPrompt := "a cat in the rain --resolution 1080p --duration 5 --camerafixed false"
	if arkAPI.gotContent[0].Text != wantPrompt {
		t.Errorf("prompt = %q, want %q", arkAPI.gotContent[0].Text, wantPrompt)
	}
	if len(up.published) != 1 {
		t.Errorf("published = %v", up.published)
	}
	if len(rec.recorded) != 1 || !rec.recorded[0].Success {
		t.Errorf("recorded = %+v", rec.recorded)
	}
}

func TestGenerateEndFrameAndSeed(t *testing.T) {
	arkAPI := &fakeArk{
		handle:  domain.TaskHandle{TaskID: "t-1"},
		updates: []domain.StatusUpdate{{Status: domain.StatusSucceeded, Result: "https://cdn.example.com/v.mp4"}},
	}
	o, up := newTestOrchestrator(arkAPI, nil, &fakeDownloader{}, nil)

	_, err := o.Generate(context.Background(), GenerateRequest{
		ImagePath:    "/tmp/a.png",
		EndFramePath: "/tmp/b.png",
		Prompt:       "pan",
		Model:        "m",
		Resolution:   "720p",
		Duration:     "10s",
		CameraFixed:  true,
		Seed:         42,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(up.published) != 2 {
		t.Errorf("published = %v", up.published)
	}
	if len(arkAPI.gotContent) != 3 {
		t.Fatalf("content = %+v", arkAPI.gotContent)
	}
	if arkAPI.gotContent[1].Role != "first_frame" || arkAPI.gotContent[2].Role != "last_frame" {
		t.Errorf("frame roles = %q, %q", arkAPI.gotContent[1].Role, arkAPI.gotContent[2].Role)
	}
	wantPrompt := "pan --resolution 720p --duration 10 --camerafixed true --seed 42"
	if arkAPI.gotContent[0].Text != wantPrompt {
		t.Errorf("prompt = %q", arkAPI.gotContent[0].Text)
	}
}

func TestGenerateSubmissionErrorIsFailureValue(t *testing.T) {
	arkAPI := &fakeArk{err: fmt.Errorf("%w: status 400", domain.ErrSubmission)}
	rec := &memRecorder{}
	o, _ := newTestOrchestrator(arkAPI, nil, &fakeDownloader{}, rec)

	res, err := o.Generate(context.Background(), GenerateRequest{ImagePath: "/tmp/a.png", Model: "m", Seed: -1})
	if err != nil {
		t.Fatalf("submission errors must degrade to a failure value, got %v", err)
	}
	if res.Success || res.ErrorMessage == "" {
		t.Fatalf("result = %+v", res)
	}
	if len(rec.recorded) != 1 || rec.recorded[0].Success {
		t.Errorf("recorded = %+v", rec.recorded)
	}
}

func TestGenerateTimeoutIsFailureValue(t *testing.T) {
	arkAPI := &fakeArk{
		handle:  domain.TaskHandle{TaskID: "t-1"},
		updates: []domain.StatusUpdate{{Status: domain.StatusQueued}},
	}
	o, _ := newTestOrchestrator(arkAPI, nil, &fakeDownloader{}, nil)

	res, err := o.Generate(context.Background(), GenerateRequest{ImagePath: "/tmp/a.png", Model: "m", Seed: -1})
	if err != nil {
		t.Fatalf("poll timeout must degrade to a failure value, got %v", err)
	}
	if res.Success || !strings.Contains(res.ErrorMessage, "timed out") {
		t.Fatalf("result = %+v", res)
	}
}

func TestGenerateDownloadErrorIsFailureValue(t *testing.T) {
	arkAPI := &fakeArk{
		handle:  domain.TaskHandle{TaskID: "t-1"},
		updates: []domain.StatusUpdate{{Status: domain.StatusSucceeded, Result: "https://cdn.example.com/v.mp4"}},
	}
	dl := &fakeDownloader{err: fmt.Errorf("%w: status 410", domain.ErrDownload)}
	o, _ := newTestOrchestrator(arkAPI, nil, dl, nil)

	res, err := o.Generate(context.Background(), GenerateRequest{ImagePath: "/tmp/a.png", Model: "m", Seed: -1})
	if err != nil {
		t.Fatalf("download errors must degrade to a failure value, got %v", err)
	}
	if res.Success || res.ArtifactPath != "" {
		t.Fatalf("result = %+v", res)
	}
}

func TestGenerateSigningErrorPropagates(t *testing.T) {
	arkAPI := &fakeArk{err: fmt.Errorf("%w: empty credentials", domain.ErrSigning)}
	o, _ := newTestOrchestrator(arkAPI, nil, &fakeDownloader{}, nil)

	res, err := o.Generate(context.Background(), GenerateRequest{ImagePath: "/tmp/a.png", Model: "m", Seed: -1})
	if err == nil {
		t.Fatal("signing errors must propagate")
	}
	if res.Success {
		t.Fatalf("result = %+v", res)
	}
}

func TestGenerateSynchronousHandleSkipsPolling(t *testing.T) {
	arkAPI := &fakeArk{handle: domain.TaskHandle{Resolved: true, Result: "https://cdn.example.com/sync.mp4"}}
	dl := &fakeDownloader{}
	o, _ := newTestOrchestrator(arkAPI, nil, dl, nil)

	res, err := o.Generate(context.Background(), GenerateRequest{ImagePath: "/tmp/a.png", Model: "m", Seed: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || dl.gotURL != "https://cdn.example.com/sync.mp4" {
		t.Fatalf("result = %+v, url = %q", res, dl.gotURL)
	}
	if arkAPI.calls != 0 {
		t.Errorf("poller ran %d checks on a resolved handle", arkAPI.calls)
	}
}

func TestAvatarHappyPath(t *testing.T) {
	v := &fakeVisual{
		roleHandle:  domain.TaskHandle{TaskID: "role-1"},
		videoHandle: domain.TaskHandle{TaskID: "vid-1"},
		roleCheck:   &scripted{updates: []domain.StatusUpdate{{Status: domain.StatusSucceeded, Result: "role-1"}}},
		videoCheck: &scripted{updates: []domain.StatusUpdate{
			{Status: domain.StatusRunning},
			{Status: domain.StatusSucceeded, Result: "https://cdn.example.com/talk.mp4"},
		}},
	}
	dl := &fakeDownloader{}
	o, up := newTestOrchestrator(nil, v, dl, nil)

	res, err := o.Avatar(context.Background(), AvatarRequest{ImagePath: "/tmp/face.png", AudioPath: "/tmp/voice.wav"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || dl.gotURL != "https://cdn.example.com/talk.mp4" {
		t.Fatalf("result = %+v, url = %q", res, dl.gotURL)
	}
	if len(up.published) != 2 {
		t.Errorf("published = %v", up.published)
	}
	if res.Job.Kind != domain.KindAvatar {
		t.Errorf("kind = %q", res.Job.Kind)
	}
}

func TestAvatarRoleFailureStopsBeforeVideoSubmit(t *testing.T) {
	v := &fakeVisual{
		roleHandle: domain.TaskHandle{TaskID: "role-1"},
		roleCheck: &scripted{updates: []domain.StatusUpdate{
			{Status: domain.StatusFailed, Reason: "no usable subject detected in the input image"},
		}},
	}
	o, _ := newTestOrchestrator(nil, v, &fakeDownloader{}, nil)

	res, err := o.Avatar(context.Background(), AvatarRequest{ImagePath: "/tmp/face.png", AudioPath: "/tmp/voice.wav"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || !strings.Contains(res.ErrorMessage, "subject identification failed") {
		t.Fatalf("result = %+v", res)
	}
	if v.videoSubmitted {
		t.Error("video task submitted despite role failure")
	}
}

func TestFormatPrompt(t *testing.T) {
	cases := []struct {
		name string
		req  GenerateRequest
		want string
	}{
		{
			name: "no seed",
			req:  GenerateRequest{Prompt: "p", Resolution: "1080p", Duration: "5s", Seed: -1},
			want: "p --resolution 1080p --duration 5 --camerafixed false",
		},
		{
			name: "seed zero is valid",
			req:  GenerateRequest{Prompt: "p", Resolution: "480p", Duration: "10s", CameraFixed: true, Seed: 0},
			want: "p --resolution 480p --duration 10 --camerafixed true --seed 0",
		},
		{
			name: "empty prompt trims leading space",
			req:  GenerateRequest{Resolution: "720p", Duration: "5s", Seed: -1},
			want: "--resolution 720p --duration 5 --camerafixed false",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := formatPrompt(c.req); got != c.want {
				t.Errorf("formatPrompt = %q, want %q", got, c.want)
			}
		})
	}
}
