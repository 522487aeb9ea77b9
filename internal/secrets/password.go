package secrets

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/zalando/go-keyring"

	"jobfeed-engine/internal/config"
)

// KeyringService groups this app's secrets in the OS keychain.
const KeyringService = "jobfeed"

func GetIMAPPassword(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", errors.New("keyring account name is empty")
	}
	pw, err := keyring.Get(KeyringService, account)
	if err != nil || strings.TrimSpace(pw) == "" {
		return "", errors.New("IMAP password not found in keychain")
	}
	return pw, nil
}

func SetIMAPPassword(account, password string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, account, password)
}

func DeleteIMAPPassword(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}

func IMAPKeyringAccount(cfg config.Config) string {
	return fmt.Sprintf("jobfeed:imap:%s@%s", cfg.Email.Username, cfg.Email.IMAPHost)
}
