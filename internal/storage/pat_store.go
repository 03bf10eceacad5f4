package storage

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// CredentialStore defines the interface for PAT storage operations
type CredentialStore interface {
	GetPAT(ctx context.Context, org string) (string, error)
	SetPAT(ctx context.Context, org, pat string) error
}

// S3CredentialStore implements CredentialStore using AWS S3. Tokens are
// encrypted with AES-GCM before they leave the process.
type S3CredentialStore struct {
	client     *s3.Client
	bucketName string
	encryptKey []byte // 32-byte key for AES-256
}

type patData struct {
	PAT string `json:"pat"`
}

// NewS3CredentialStore creates a new S3CredentialStore instance
func NewS3CredentialStore(client *s3.Client, bucketName string, encryptKey []byte) *S3CredentialStore {
	return &S3CredentialStore{
		client:     client,
		bucketName: bucketName,
		encryptKey: encryptKey,
	}
}

// NewS3CredentialStoreFromEnv builds a store from the default AWS config and
// a base64-encoded encryption key.
func NewS3CredentialStoreFromEnv(ctx context.Context, bucketName, encodedKey string) (*S3CredentialStore, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %v", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}

	return NewS3CredentialStore(s3.NewFromConfig(awsCfg), bucketName, key), nil
}

// GetPAT retrieves and decrypts the PAT for the given organization
func (s *S3CredentialStore) GetPAT(ctx context.Context, org string) (string, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.getKey(org)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get PAT from S3: %v", err)
	}
	defer result.Body.Close()

	var data patData
	if err := json.NewDecoder(result.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode PAT data: %v", err)
	}

	decrypted, err := s.decrypt(data.PAT)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt PAT: %v", err)
	}

	return decrypted, nil
}

// SetPAT encrypts and stores the PAT for the given organization
func (s *S3CredentialStore) SetPAT(ctx context.Context, org, pat string) error {
	encrypted, err := s.encrypt(pat)
	if err != nil {
		return fmt.Errorf("failed to encrypt PAT: %v", err)
	}

	jsonData, err := json.Marshal(patData{PAT: encrypted})
	if err != nil {
		return fmt.Errorf("failed to marshal PAT data: %v", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.getKey(org)),
		Body:   bytes.NewReader(jsonData),
	})
	if err != nil {
		return fmt.Errorf("failed to store PAT in S3: %v", err)
	}

	return nil
}

// encrypt encrypts the PAT using AES-GCM
func (s *S3CredentialStore) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.encryptKey)
	if err != nil {
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts the PAT using AES-GCM
func (s *S3CredentialStore) decrypt(encryptedText string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedText)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(s.encryptKey)
	if err != nil {
		return "", err
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(ciphertext) < aesGCM.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce := ciphertext[:aesGCM.NonceSize()]
	ciphertext = ciphertext[aesGCM.NonceSize():]

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// getKey generates the S3 key for an organization's PAT
func (s *S3CredentialStore) getKey(org string) string {
	return fmt.Sprintf("pat/%s.json", org)
}
