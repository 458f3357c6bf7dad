// Package storage gera links temporários para os arquivos guardados no
// Cloudflare R2, que fala o protocolo do S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrEmptyKey é devolvido quando o caminho do arquivo está vazio.
var ErrEmptyKey = errors.New("caminho do arquivo vazio")

// Config aponta para o bucket. Endpoint vazio usa a AWS de verdade.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// Presigner assina URLs GET para objetos de um único bucket.
type Presigner struct {
	presign *s3.PresignClient
	bucket  string
}

// NewPresigner monta o cliente S3. Nenhuma chamada de rede é feita aqui:
// a assinatura é calculada localmente.
func NewPresigner(ctx context.Context, cfg Config) (*Presigner, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		// O R2 ignora a região, mas o SigV4 precisa de uma.
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("falha ao carregar configuração do S3: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Presigner{presign: s3.NewPresignClient(client), bucket: cfg.Bucket}, nil
}

// PresignDownload devolve uma URL GET válida por ttl para a chave informada.
func (p *Presigner) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrEmptyKey
	}

	req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("falha ao assinar URL de %s: %w", key, err)
	}
	return req.URL, nil
}
