//go:build !no_sftp

package upload

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prasisiri/pycode-cronjob/internal/config"
	"github.com/prasisiri/pycode-cronjob/internal/logging"
	"golang.org/x/crypto/ssh"
)

// fakeSFTP records the calls an upload makes against a session
type fakeSFTP struct {
	statErr   error
	mkdirErr  error
	createErr error

	stats   []string
	mkdirs  []string
	created map[string]*bytes.Buffer
	closed  bool
}

type bufferCloser struct {
	*bytes.Buffer
}

func (bufferCloser) Close() error { return nil }

func (f *fakeSFTP) Stat(p string) (os.FileInfo, error) {
	f.stats = append(f.stats, p)
	return nil, f.statErr
}

func (f *fakeSFTP) Mkdir(p string) error {
	f.mkdirs = append(f.mkdirs, p)
	return f.mkdirErr
}

func (f *fakeSFTP) Create(p string) (io.WriteCloser, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.created == nil {
		f.created = make(map[string]*bytes.Buffer)
	}
	buf := &bytes.Buffer{}
	f.created[p] = buf
	return bufferCloser{buf}, nil
}

func (f *fakeSFTP) Close() error {
	f.closed = true
	return nil
}

// newFakeSFTPTransport returns a transport whose dialer hands out client
func newFakeSFTPTransport(client *fakeSFTP, dialErr error) (*SFTPTransport, *[]*ssh.ClientConfig) {
	var dials []*ssh.ClientConfig
	transport := NewSFTPTransport(logging.Discard())
	transport.dial = func(ctx context.Context, addr string, cc *ssh.ClientConfig) (sftpClient, error) {
		dials = append(dials, cc)
		if dialErr != nil {
			return nil, dialErr
		}
		return client, nil
	}
	return transport, &dials
}

func sftpSection(extra map[string]string) config.Section {
	values := map[string]string{
		"host":        "files.example.test",
		"username":    "deploy",
		"password":    "secret",
		"remote_path": "/srv/incoming",
	}
	for k, v := range extra {
		values[k] = v
	}
	return config.NewSection("sftp", values)
}

func writePrivateKey(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSFTPUpload_CreatesMissingDirectoryOnce(t *testing.T) {
	client := &fakeSFTP{statErr: fs.ErrNotExist}
	transport, dials := newFakeSFTPTransport(client, nil)
	path := writeTempFile(t, "report.csv", "id,total\n")

	out := transport.Upload(context.Background(), path, sftpSection(nil))

	if !out.Succeeded {
		t.Fatalf("Expected success, got %q", out.Message)
	}
	if len(*dials) != 1 {
		t.Fatalf("Expected 1 dial, got %d", len(*dials))
	}
	if len(client.mkdirs) != 1 || client.mkdirs[0] != "/srv" {
		t.Errorf("Expected a single mkdir of /srv, got %v", client.mkdirs)
	}
	buf, ok := client.created["/srv/incoming/report.csv"]
	if !ok {
		t.Fatalf("Expected /srv/incoming/report.csv to be created, got %v", client.created)
	}
	if buf.String() != "id,total\n" {
		t.Errorf("Unexpected remote content %q", buf.String())
	}
	if !client.closed {
		t.Error("Expected session to be closed")
	}
	if out.Destination != "files.example.test:/srv/incoming/report.csv" {
		t.Errorf("Unexpected destination %q", out.Destination)
	}
}

func TestSFTPUpload_ExistingDirectory(t *testing.T) {
	client := &fakeSFTP{}
	transport, _ := newFakeSFTPTransport(client, nil)
	path := writeTempFile(t, "report.csv", "data")

	out := transport.Upload(context.Background(), path, sftpSection(nil))

	if !out.Succeeded {
		t.Fatalf("Expected success, got %q", out.Message)
	}
	if len(client.stats) != 1 || client.stats[0] != "/srv" {
		t.Errorf("Expected stat of /srv, got %v", client.stats)
	}
	if len(client.mkdirs) != 0 {
		t.Errorf("Expected no mkdir, got %v", client.mkdirs)
	}
}

func TestSFTPUpload_StatErrorIsFailure(t *testing.T) {
	client := &fakeSFTP{statErr: fs.ErrPermission}
	transport, _ := newFakeSFTPTransport(client, nil)
	path := writeTempFile(t, "report.csv", "data")

	out := transport.Upload(context.Background(), path, sftpSection(nil))

	if out.Succeeded {
		t.Fatal("Expected failure when stat is denied")
	}
	if len(client.mkdirs) != 0 {
		t.Errorf("Expected no mkdir, got %v", client.mkdirs)
	}
	if !client.closed {
		t.Error("Expected session to be closed on failure")
	}
}

func TestSFTPUpload_RemoteErrors(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeSFTP
		errMsg string
	}{
		{
			name:   "mkdir fails",
			client: &fakeSFTP{statErr: fs.ErrNotExist, mkdirErr: errors.New("no such file")},
			errMsg: "failed to create directory /srv",
		},
		{
			name:   "create fails",
			client: &fakeSFTP{createErr: errors.New("permission denied")},
			errMsg: "failed to create /srv/incoming/report.csv: permission denied",
		},
	}

	path := writeTempFile(t, "report.csv", "data")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport, _ := newFakeSFTPTransport(tt.client, nil)
			out := transport.Upload(context.Background(), path, sftpSection(nil))

			if out.Succeeded {
				t.Fatal("Expected failure")
			}
			if !strings.Contains(out.Message, tt.errMsg) {
				t.Errorf("Expected message containing %q, got %q", tt.errMsg, out.Message)
			}
			if !tt.client.closed {
				t.Error("Expected session to be closed on failure")
			}
		})
	}
}

func TestSFTPUpload_DialError(t *testing.T) {
	transport, _ := newFakeSFTPTransport(nil, errors.New("sftp: failed to connect to files.example.test:22: connection refused"))
	path := writeTempFile(t, "report.csv", "data")

	out := transport.Upload(context.Background(), path, sftpSection(nil))

	if out.Succeeded {
		t.Fatal("Expected failure")
	}
	if !strings.Contains(out.Message, "connection refused") {
		t.Errorf("Expected underlying error text, got %q", out.Message)
	}
}

func TestSFTPUpload_InvalidKeyFailsBeforeConnecting(t *testing.T) {
	garbage := writeTempFile(t, "id_rsa", "not a private key")

	tests := []struct {
		name    string
		keyPath string
	}{
		{name: "unparseable key", keyPath: garbage},
		{name: "missing key file", keyPath: filepath.Join(t.TempDir(), "absent")},
	}

	path := writeTempFile(t, "report.csv", "data")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport, dials := newFakeSFTPTransport(&fakeSFTP{}, nil)
			out := transport.Upload(context.Background(), path, sftpSection(map[string]string{"key_path": tt.keyPath}))

			if out.Succeeded {
				t.Fatal("Expected failure for invalid key")
			}
			if !strings.Contains(out.Message, "authentication failed: load private key") {
				t.Errorf("Expected key load error, got %q", out.Message)
			}
			if len(*dials) != 0 {
				t.Errorf("Expected no connection attempt, got %d", len(*dials))
			}
		})
	}
}

func TestSFTPUpload_KeyAuth(t *testing.T) {
	keyPath := writePrivateKey(t)
	transport, dials := newFakeSFTPTransport(&fakeSFTP{}, nil)
	path := writeTempFile(t, "report.csv", "data")

	section := sftpSection(map[string]string{"key_path": keyPath, "password": "", "port": "2222"})
	out := transport.Upload(context.Background(), path, section)

	if !out.Succeeded {
		t.Fatalf("Expected success, got %q", out.Message)
	}
	cc := (*dials)[0]
	if cc.User != "deploy" {
		t.Errorf("Expected user deploy, got %s", cc.User)
	}
	if len(cc.Auth) != 1 {
		t.Errorf("Expected a single auth method, got %d", len(cc.Auth))
	}
}

func TestSFTPUpload_NoCredentials(t *testing.T) {
	transport, dials := newFakeSFTPTransport(&fakeSFTP{}, nil)
	path := writeTempFile(t, "report.csv", "data")

	out := transport.Upload(context.Background(), path, sftpSection(map[string]string{"password": ""}))

	if out.Succeeded {
		t.Fatal("Expected failure without credentials")
	}
	if !strings.Contains(out.Message, "neither key_path nor password") {
		t.Errorf("Unexpected message %q", out.Message)
	}
	if len(*dials) != 0 {
		t.Errorf("Expected no connection attempt, got %d", len(*dials))
	}
}

func TestSFTPUpload_KnownHostsMissing(t *testing.T) {
	transport, dials := newFakeSFTPTransport(&fakeSFTP{}, nil)
	path := writeTempFile(t, "report.csv", "data")

	section := sftpSection(map[string]string{"known_hosts": filepath.Join(t.TempDir(), "known_hosts")})
	out := transport.Upload(context.Background(), path, section)

	if out.Succeeded {
		t.Fatal("Expected failure for unreadable known_hosts")
	}
	if len(*dials) != 0 {
		t.Errorf("Expected no connection attempt, got %d", len(*dials))
	}
}

func TestSFTPSettingsValidation(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		errMsg string
	}{
		{name: "missing host", values: map[string]string{"username": "u", "remote_path": "/r"}, errMsg: "sftp: host is required"},
		{name: "missing username", values: map[string]string{"host": "h", "remote_path": "/r"}, errMsg: "sftp: username is required"},
		{name: "missing remote_path", values: map[string]string{"host": "h", "username": "u"}, errMsg: "sftp: remote_path is required"},
		{name: "bad port", values: map[string]string{"host": "h", "username": "u", "remote_path": "/r", "port": "ssh"}, errMsg: "invalid port"},
		{name: "port out of range", values: map[string]string{"host": "h", "username": "u", "remote_path": "/r", "port": "70000"}, errMsg: "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSFTPSettings(config.NewSection("sftp", tt.values))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected error containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}

	s, err := parseSFTPSettings(config.NewSection("sftp", map[string]string{"host": "h", "username": "u", "remote_path": "/r"}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.Port != 22 {
		t.Errorf("Expected default port 22, got %d", s.Port)
	}
	if s.Addr() != "h:22" {
		t.Errorf("Expected address h:22, got %s", s.Addr())
	}
}
