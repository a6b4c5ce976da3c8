//go:build !no_sftp

package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/sftp"
	"github.com/prasisiri/pycode-cronjob/internal/config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	defaultSFTPPort    = 22
	defaultSFTPTimeout = 30 * time.Second
)

// SFTPSettings is the validated [sftp] section
type SFTPSettings struct {
	Host          string
	Port          int
	Username      string
	Password      string
	KeyPath       string
	KeyPassphrase string
	KnownHosts    string
	RemotePath    string
	Timeout       time.Duration
}

// Addr returns host:port
func (s SFTPSettings) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func parseSFTPSettings(section config.Section) (SFTPSettings, error) {
	host, err := section.String("host")
	if err != nil {
		return SFTPSettings{}, err
	}
	username, err := section.String("username")
	if err != nil {
		return SFTPSettings{}, err
	}
	remotePath, err := section.String("remote_path")
	if err != nil {
		return SFTPSettings{}, err
	}

	port, err := section.Int("port", defaultSFTPPort)
	if err != nil {
		return SFTPSettings{}, err
	}
	if port < 1 || port > 65535 {
		return SFTPSettings{}, fmt.Errorf("sftp: port %d out of range", port)
	}

	timeout, err := section.Duration("timeout", defaultSFTPTimeout)
	if err != nil {
		return SFTPSettings{}, err
	}

	return SFTPSettings{
		Host:          host,
		Port:          port,
		Username:      username,
		Password:      section.StringOr("password", ""),
		KeyPath:       section.StringOr("key_path", ""),
		KeyPassphrase: section.StringOr("key_passphrase", ""),
		KnownHosts:    section.StringOr("known_hosts", ""),
		RemotePath:    remotePath,
		Timeout:       timeout,
	}, nil
}

// sftpClient is the subset of an SFTP session used for uploads.
// Close releases the session and the connection beneath it.
type sftpClient interface {
	Stat(p string) (os.FileInfo, error)
	Mkdir(p string) error
	Create(p string) (io.WriteCloser, error)
	Close() error
}

// sftpDialer connects, authenticates and opens an SFTP session
type sftpDialer func(ctx context.Context, addr string, cc *ssh.ClientConfig) (sftpClient, error)

// SFTPTransport uploads over SSH file transfer
type SFTPTransport struct {
	logger *slog.Logger
	dial   sftpDialer
}

// NewSFTPTransport creates a new SFTPTransport
func NewSFTPTransport(logger *slog.Logger) *SFTPTransport {
	return &SFTPTransport{logger: logger, dial: dialSFTP}
}

// Kind returns the transport kind
func (t *SFTPTransport) Kind() Kind {
	return KindSFTP
}

// Inspect validates the [sftp] section
func (t *SFTPTransport) Inspect(section config.Section) (map[string]string, error) {
	s, err := parseSFTPSettings(section)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"address":        s.Addr(),
		"username":       s.Username,
		"password":       maskSecret(s.Password),
		"key_path":       s.KeyPath,
		"key_passphrase": maskSecret(s.KeyPassphrase),
		"known_hosts":    s.KnownHosts,
		"remote_path":    s.RemotePath,
		"timeout":        s.Timeout.String(),
	}, nil
}

// Upload copies the file into remote_path on the server
func (t *SFTPTransport) Upload(ctx context.Context, filePath string, section config.Section) Outcome {
	settings, err := parseSFTPSettings(section)
	if err != nil {
		t.logger.Error("SFTP upload failed", "error", err)
		return Failure(KindSFTP, err)
	}

	t.logger.Info(fmt.Sprintf("Uploading %s to %s:%s via SFTP", filePath, settings.Host, settings.RemotePath))

	target, n, err := t.transfer(ctx, filePath, settings)
	if err != nil {
		t.logger.Error("SFTP upload failed", "error", err)
		return Failure(KindSFTP, err)
	}

	t.logger.Info("SFTP upload completed successfully", "remote", target, "size", humanize.Bytes(uint64(n)))
	return Success(KindSFTP, settings.Host+":"+target, n, "SFTP upload completed successfully to "+target)
}

func (t *SFTPTransport) transfer(ctx context.Context, filePath string, s SFTPSettings) (string, int64, error) {
	auth, err := authMethod(s)
	if err != nil {
		return "", 0, err
	}
	hostKey, err := t.hostKeyCallback(s)
	if err != nil {
		return "", 0, err
	}

	local, err := os.Open(filePath)
	if err != nil {
		return "", 0, fmt.Errorf("sftp: failed to open %s: %w", filePath, err)
	}
	defer func() { _ = local.Close() }()

	client, err := t.dial(ctx, s.Addr(), &ssh.ClientConfig{
		User:            s.Username,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: hostKey,
		Timeout:         s.Timeout,
	})
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = client.Close() }()

	if err := ensureRemoteDir(client, path.Dir(s.RemotePath)); err != nil {
		return "", 0, err
	}

	target := path.Join(s.RemotePath, filepath.Base(filePath))
	remote, err := client.Create(target)
	if err != nil {
		return "", 0, fmt.Errorf("sftp: failed to create %s: %w", target, err)
	}

	n, err := io.Copy(remote, local)
	if err != nil {
		_ = remote.Close()
		return "", 0, fmt.Errorf("sftp: failed to write %s: %w", target, err)
	}
	if err := remote.Close(); err != nil {
		return "", 0, fmt.Errorf("sftp: failed to close %s: %w", target, err)
	}
	return target, n, nil
}

// ensureRemoteDir creates dir when it is absent. Only a single level is
// created; missing ancestors make Mkdir fail.
func ensureRemoteDir(client sftpClient, dir string) error {
	_, err := client.Stat(dir)
	if err == nil {
		return nil
	}
	if !isNotExist(err) {
		return fmt.Errorf("sftp: failed to stat %s: %w", dir, err)
	}
	if err := client.Mkdir(dir); err != nil {
		return fmt.Errorf("sftp: failed to create directory %s: %w", dir, err)
	}
	return nil
}

func isNotExist(err error) bool {
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	var status *sftp.StatusError
	return errors.As(err, &status) && status.FxCode() == sftp.ErrSSHFxNoSuchFile
}

// authMethod prefers the private key over the password
func authMethod(s SFTPSettings) (ssh.AuthMethod, error) {
	if s.KeyPath != "" {
		pem, err := os.ReadFile(s.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("sftp: authentication failed: load private key %s: %w", s.KeyPath, err)
		}
		var signer ssh.Signer
		if s.KeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(s.KeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(pem)
		}
		if err != nil {
			return nil, fmt.Errorf("sftp: authentication failed: load private key %s: %w", s.KeyPath, err)
		}
		return ssh.PublicKeys(signer), nil
	}
	if s.Password != "" {
		return ssh.Password(s.Password), nil
	}
	return nil, fmt.Errorf("sftp: authentication failed: neither key_path nor password is configured")
}

func (t *SFTPTransport) hostKeyCallback(s SFTPSettings) (ssh.HostKeyCallback, error) {
	if s.KnownHosts == "" {
		t.logger.Warn("known_hosts not configured, host key will not be verified", "host", s.Host)
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(s.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("sftp: failed to load known_hosts %s: %w", s.KnownHosts, err)
	}
	return cb, nil
}

// sftpSession owns an SFTP client and its SSH connection
type sftpSession struct {
	sftp *sftp.Client
	ssh  *ssh.Client
}

func (s *sftpSession) Stat(p string) (os.FileInfo, error) {
	return s.sftp.Stat(p)
}

func (s *sftpSession) Mkdir(p string) error {
	return s.sftp.Mkdir(p)
}

func (s *sftpSession) Create(p string) (io.WriteCloser, error) {
	return s.sftp.Create(p)
}

func (s *sftpSession) Close() error {
	sftpErr := s.sftp.Close()
	sshErr := s.ssh.Close()
	return errors.Join(sftpErr, sshErr)
}

func dialSFTP(ctx context.Context, addr string, cc *ssh.ClientConfig) (sftpClient, error) {
	dialer := net.Dialer{Timeout: cc.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("sftp: failed to connect to %s: %w", addr, err)
	}

	// Bound the handshake by the same deadline as the dial
	if cc.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(cc.Timeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cc)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sftp: ssh handshake as %s with %s failed: %w", cc.User, addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	sshClient := ssh.NewClient(sshConn, chans, reqs)
	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("sftp: failed to open session: %w", err)
	}
	return &sftpSession{sftp: client, ssh: sshClient}, nil
}

func init() {
	RegisterTransport(KindSFTP, func(logger *slog.Logger) Transport {
		return NewSFTPTransport(logger)
	})
}
