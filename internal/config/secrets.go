package config

import (
	"fmt"
	"os"
	"strings"
)

// ReadSecret читает секрет из файла Docker Secrets.
func ReadSecret(secretName string) (string, error) {
	// Путь по умолчанию для Docker Secrets
	filePath := fmt.Sprintf("/run/secrets/%s", secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		// Fallback на переменную окружения для локальной разработки
		envName := strings.ToUpper(secretName)
		if val := os.Getenv(envName); val != "" {
			return val, nil
		}
		return "", fmt.Errorf("failed to read secret file %s (and env %s is empty): %w", filePath, envName, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}
