package invoice

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
)

// Archive conserve les factures dans un bucket MinIO
type Archive struct {
	client *minio.Client
	bucket string
}

func NewArchive(client *minio.Client, bucket string) *Archive {
	return &Archive{client: client, bucket: bucket}
}

func ObjectKey(orderID int64) string {
	return fmt.Sprintf("invoices/order-%d.pdf", orderID)
}

func (a *Archive) Put(ctx context.Context, orderID int64, doc *Document) (string, error) {
	key := ObjectKey(orderID)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(doc.Data), int64(len(doc.Data)),
		minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		return "", fmt.Errorf("archivage facture #%d: %w", orderID, err)
	}
	return key, nil
}

// Exists vérifie la présence de la facture ; un lien signé ne le fait pas
func (a *Archive) Exists(ctx context.Context, orderID int64) (bool, error) {
	_, err := a.client.StatObject(ctx, a.bucket, ObjectKey(orderID), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, fmt.Errorf("état facture #%d: %w", orderID, err)
}

// PresignedURL retourne un lien de téléchargement temporaire
func (a *Archive) PresignedURL(ctx context.Context, orderID int64, ttl time.Duration) (string, error) {
	params := make(url.Values)
	params.Set("response-content-disposition", fmt.Sprintf(`attachment; filename="facture_%d.pdf"`, orderID))

	u, err := a.client.PresignedGetObject(ctx, a.bucket, ObjectKey(orderID), ttl, params)
	if err != nil {
		return "", fmt.Errorf("lien facture #%d: %w", orderID, err)
	}
	return u.String(), nil
}
