package main

import (
	"fmt"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHClient moves run inputs and results over plain SSH sessions (no SFTP).
type SSHClient struct {
	sshClient *ssh.Client
	host      string
}

// NewSSHClient creates a new SSH client.
// host can be in format "user@host:port" or just "host".
func NewSSHClient(host string) (*SSHClient, error) {
	var authMethods []ssh.AuthMethod
	if agentAuth := sshAgent(); agentAuth != nil {
		authMethods = append(authMethods, agentAuth)
	}
	if keyAuth := publicKeyAuth(); keyAuth != nil {
		authMethods = append(authMethods, keyAuth)
	}

	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no SSH authentication methods available - start an ssh-agent or put a key in ~/.ssh")
	}

	config := &ssh.ClientConfig{
		User:            parseUsername(host),
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback(),
	}

	client, err := ssh.Dial("tcp", parseHostAddr(host), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SSH: %w", err)
	}

	return &SSHClient{
		sshClient: client,
		host:      host,
	}, nil
}

// Close closes the SSH connection
func (c *SSHClient) Close() error {
	if c.sshClient != nil {
		return c.sshClient.Close()
	}
	return nil
}

// DownloadFile downloads a file from remote to local using cat over SSH
func (c *SSHClient) DownloadFile(remotePath, localPath string) error {
	session, err := c.sshClient.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	localFile, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	defer localFile.Close()

	session.Stdout = localFile

	if err := session.Run("cat " + shellescape(remotePath)); err != nil {
		os.Remove(localPath)
		return fmt.Errorf("failed to download %s: %w", remotePath, err)
	}

	return localFile.Sync()
}

// UploadFile uploads a local file to remote using cat over SSH.
// The data lands in a temporary name and is moved into place when complete.
func (c *SSHClient) UploadFile(localPath, remotePath string) error {
	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer localFile.Close()

	session, err := c.sshClient.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	session.Stdin = localFile

	tmp := remotePath + ".part"
	cmd := fmt.Sprintf("cat > %s && mv -f %s %s", shellescape(tmp), shellescape(tmp), shellescape(remotePath))
	if err := session.Run(cmd); err != nil {
		return fmt.Errorf("failed to upload %s: %w", remotePath, err)
	}

	return nil
}

// FileExists checks if a file exists on the remote server
func (c *SSHClient) FileExists(remotePath string) (bool, error) {
	cmd := fmt.Sprintf("test -e %s && echo exists || echo notfound", shellescape(remotePath))

	session, err := c.sshClient.NewSession()
	if err != nil {
		return false, fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	output, err := session.Output(cmd)
	if err != nil {
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}

	return strings.TrimSpace(string(output)) == "exists", nil
}

// CreateDirectory creates a directory on the remote server
func (c *SSHClient) CreateDirectory(remotePath string) error {
	session, err := c.sshClient.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	if err := session.Run("mkdir -p " + shellescape(remotePath)); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return nil
}

// Publish uploads localPath into remoteDir without overwriting earlier
// results: an existing name gets a _1, _2, ... suffix. It returns the remote path used.
func (c *SSHClient) Publish(localPath, remoteDir string) (string, error) {
	if err := c.CreateDirectory(remoteDir); err != nil {
		return "", err
	}

	base := filepath.Base(localPath)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	finalPath := path.Join(remoteDir, base)
	for counter := 1; ; counter++ {
		exists, err := c.FileExists(finalPath)
		if err != nil {
			return "", err
		}
		if !exists {
			break
		}
		finalPath = path.Join(remoteDir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
	}

	if err := c.UploadFile(localPath, finalPath); err != nil {
		return "", err
	}
	return finalPath, nil
}

// parseUsername extracts username from host string
func parseUsername(host string) string {
	if user, _, ok := strings.Cut(host, "@"); ok {
		return user
	}
	return os.Getenv("USER")
}

// parseHostAddr extracts host:port from host string
func parseHostAddr(host string) string {
	hostPart := host
	if _, rest, ok := strings.Cut(host, "@"); ok {
		hostPart = rest
	}

	if _, _, err := net.SplitHostPort(hostPart); err != nil {
		return net.JoinHostPort(hostPart, "22")
	}
	return hostPart
}

// sshAgent returns an auth method backed by the running ssh-agent, if any.
func sshAgent() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		Debugf("Could not reach ssh-agent: %v", err)
		return nil
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers)
}

// publicKeyAuth loads SSH keys from standard locations
func publicKeyAuth() ssh.AuthMethod {
	home, _ := os.UserHomeDir()
	keyPaths := []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_ecdsa"),
		filepath.Join(home, ".ssh", "id_rsa"),
	}

	var signers []ssh.Signer
	for _, keyPath := range keyPaths {
		key, err := os.ReadFile(keyPath)
		if err != nil {
			continue
		}

		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			Debugf("Skipping key %s: %v", keyPath, err)
			continue
		}

		signers = append(signers, signer)
	}

	if len(signers) == 0 {
		return nil
	}

	return ssh.PublicKeys(signers...)
}

// hostKeyCallback verifies against ~/.ssh/known_hosts when it exists.
func hostKeyCallback() ssh.HostKeyCallback {
	home, _ := os.UserHomeDir()
	cb, err := knownhosts.New(filepath.Join(home, ".ssh", "known_hosts"))
	if err != nil {
		Warnf("known_hosts unavailable (%v); host keys will not be verified", err)
		return ssh.InsecureIgnoreHostKey()
	}
	return cb
}

// shellescape escapes a string for safe use in shell commands
func shellescape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}
