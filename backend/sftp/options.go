package sftp

import (
	"os"
	"path"
	"runtime"
	"strconv"

	"github.com/mitchellh/go-homedir"
	_sftp "github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const systemWideKnownHosts = "/etc/ssh/ssh_known_hosts"

// Options holds the sftp backend configuration.
type Options struct {
	// Host is the server to connect to.
	Host string `mapstructure:"host" validate:"required"`

	// Port defaults to 22.
	Port int `mapstructure:"port"`

	// Username is the login user.
	Username string `mapstructure:"username" validate:"required"`

	// Path roots the mount below a remote directory.
	Path string `mapstructure:"path"`

	Password      string `mapstructure:"password"`       // env var MOUNTFS_SFTP_PASSWORD
	KeyFilePath   string `mapstructure:"key_file"`       // env var MOUNTFS_SFTP_KEYFILE
	KeyPassphrase string `mapstructure:"key_passphrase"` // env var MOUNTFS_SFTP_KEYFILE_PASSPHRASE

	// KnownHostsFile overrides the known_hosts lookup. env var
	// MOUNTFS_SFTP_KNOWN_HOSTS_FILE
	KnownHostsFile string `mapstructure:"known_hosts_file"`

	// KnownHostsString pins a single authorized host key inline.
	KnownHostsString string `mapstructure:"known_hosts_string"`

	// InsecureKnownHosts disables host key verification. env var
	// MOUNTFS_SFTP_INSECURE_KNOWN_HOSTS
	InsecureKnownHosts bool `mapstructure:"insecure_known_hosts"`
}

// Note that encrypted OPENSSH private key format is not supported.
// See https://github.com/golang/go/issues/18692
// To force PEM format use ssh-keygen -m PEM.

func getClient(opts Options) (*_sftp.Client, error) {
	authMethods, err := getAuthMethods(opts)
	if err != nil {
		return nil, err
	}

	// callback for known_hosts man-in-the-middle checks
	hostKeyCallback, err := getHostKeyCallback(opts)
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User:            opts.Username,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
	}

	port := opts.Port
	if port == 0 {
		port = 22
	}

	sshClient, err := ssh.Dial("tcp", opts.Host+":"+strconv.Itoa(port), config)
	if err != nil {
		return nil, err
	}

	client, err := _sftp.NewClient(sshClient)
	if err != nil {
		return nil, err
	}

	return client, nil
}

// getHostKeyCallback gets host key callback for all known_hosts files
func getHostKeyCallback(opts Options) (ssh.HostKeyCallback, error) {
	var knownHostsFiles []string
	switch {

	case opts.InsecureKnownHosts || os.Getenv("MOUNTFS_SFTP_INSECURE_KNOWN_HOSTS") != "":
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec

	case opts.KnownHostsString != "":
		hostKey, _, _, _, err := ssh.ParseAuthorizedKey([]byte(opts.KnownHostsString))
		if err != nil {
			return nil, err
		}
		return ssh.FixedHostKey(hostKey), nil

	case opts.KnownHostsFile != "":
		// check first to prevent auto-vivification of file
		found, err := foundFile(opts.KnownHostsFile)
		if err != nil {
			return nil, err
		}
		if found {
			knownHostsFiles = append(knownHostsFiles, opts.KnownHostsFile)
			break
		}
		fallthrough

	case os.Getenv("MOUNTFS_SFTP_KNOWN_HOSTS_FILE") != "":
		found, err := foundFile(os.Getenv("MOUNTFS_SFTP_KNOWN_HOSTS_FILE"))
		if err != nil {
			return nil, err
		}
		if found {
			knownHostsFiles = append(knownHostsFiles, os.Getenv("MOUNTFS_SFTP_KNOWN_HOSTS_FILE"))
			break
		}
		fallthrough

	// user/system-wide known_hosts paths (as defined by OpenSSH https://man.openbsd.org/ssh)
	default:
		var err error
		knownHostsFiles, err = findHomeSystemKnownHosts(knownHostsFiles)
		if err != nil {
			return nil, err
		}
	}

	return knownhosts.New(knownHostsFiles...)
}

func findHomeSystemKnownHosts(knownHostsFiles []string) ([]string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}
	homeKnownHostsPath := path.Join(home, ".ssh/known_hosts")

	// check file existence first to prevent auto-vivification of file
	found, err := foundFile(homeKnownHostsPath)
	if err != nil {
		return nil, err
	}
	if found {
		knownHostsFiles = append(knownHostsFiles, homeKnownHostsPath)
	}

	// SSH doesn't exist natively on Windows and each implementation has a
	// different location for known_hosts. Better to specify KnownHostsFile
	// there.
	if runtime.GOOS != "windows" {
		found, err := foundFile(systemWideKnownHosts)
		if err != nil {
			return nil, err
		}
		if found {
			knownHostsFiles = append(knownHostsFiles, systemWideKnownHosts)
		}
	}
	return knownHostsFiles, nil
}

func foundFile(file string) (bool, error) {
	if _, err := os.Stat(file); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func getAuthMethods(opts Options) ([]ssh.AuthMethod, error) {
	auth := make([]ssh.AuthMethod, 0)

	// explicitly set password from opts, then from env if any
	pw := os.Getenv("MOUNTFS_SFTP_PASSWORD")
	if opts.Password != "" {
		pw = opts.Password
	}
	if pw != "" {
		auth = append(auth, ssh.Password(pw))
	}

	keyfile := os.Getenv("MOUNTFS_SFTP_KEYFILE")
	if opts.KeyFilePath != "" {
		keyfile = opts.KeyFilePath
	}
	if keyfile != "" {
		passphrase := os.Getenv("MOUNTFS_SFTP_KEYFILE_PASSPHRASE")
		if opts.KeyPassphrase != "" {
			passphrase = opts.KeyPassphrase
		}

		secretKey, err := getKeyFile(keyfile, passphrase)
		if err != nil {
			return []ssh.AuthMethod{}, err
		}
		auth = append(auth, ssh.PublicKeys(secretKey))
	}

	return auth, nil
}

func getKeyFile(file, passphrase string) (ssh.Signer, error) {
	buf, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(buf, []byte(passphrase))
	}
	return ssh.ParsePrivateKey(buf)
}
