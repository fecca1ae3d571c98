package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

type IJsonClient interface {
	Export(document any, filePath string) error
	ExportRaw(content []byte, filePath string) error
	Validate(filePath string) error
}

type JsonClient struct {
	Logger *logrus.Logger
}

func NewJsonClient(logger *logrus.Logger) *JsonClient {
	return &JsonClient{
		Logger: logger,
	}
}

// Export encodes document as indented JSON and writes it to filePath,
// creating parent folders as needed.
func (jsonClient *JsonClient) Export(document any, filePath string) error {
	content, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("error during Marshal(): %w", err)
	}
	return jsonClient.ExportRaw(append(content, '\n'), filePath)
}

// ExportRaw writes content unchanged.
func (jsonClient *JsonClient) ExportRaw(content []byte, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("error creating folder for %s: %w", filePath, err)
	}
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return fmt.Errorf("error writing file %s: %w", filePath, err)
	}
	jsonClient.Logger.Tracef("Wrote %d bytes to %s", len(content), filePath)
	return nil
}

func (jsonClient *JsonClient) Validate(filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("error when opening file %s: %w", filePath, err)
	}

	var payload any
	if err := json.Unmarshal(content, &payload); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", filePath, err)
	}
	return nil
}
