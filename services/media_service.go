package services

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const mediaRoot = "komunitas"

var uploadFolders = map[string]bool{
	"activities":  true,
	"attachments": true,
	"merchandise": true,
	"profiles":    true,
}

// UploadSignature is what the browser needs to upload straight to Cloudinary.
type UploadSignature struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	APIKey    string `json:"api_key"`
	CloudName string `json:"cloud_name"`
	Folder    string `json:"folder"`
}

type MediaService struct {
	cld *cloudinary.Cloudinary
	now func() time.Time
}

func NewMediaService(cloudinaryURL string) (*MediaService, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &MediaService{cld: cld, now: time.Now}, nil
}

func (s *MediaService) SignUpload(folder string) (*UploadSignature, error) {
	folder = strings.Trim(strings.ToLower(folder), "/ ")
	if !uploadFolders[folder] {
		return nil, validation("unknown upload folder %q", folder)
	}
	target := mediaRoot + "/" + folder

	params, err := api.StructToParams(uploader.UploadParams{Folder: target})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare signature params: %w", err)
	}
	timestamp := s.now().Unix()
	params.Set("timestamp", strconv.FormatInt(timestamp, 10))

	signature, err := api.SignParameters(params, s.cld.Config.Cloud.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign upload params: %w", err)
	}

	return &UploadSignature{
		Signature: signature,
		Timestamp: timestamp,
		APIKey:    s.cld.Config.Cloud.APIKey,
		CloudName: s.cld.Config.Cloud.CloudName,
		Folder:    target,
	}, nil
}

// Destroy removes an asset uploaded under the platform's media root.
func (s *MediaService) Destroy(ctx context.Context, publicID string) error {
	publicID = strings.TrimSpace(publicID)
	if !strings.HasPrefix(publicID, mediaRoot+"/") {
		return validation("public id is outside the platform media folder")
	}

	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("%w: cloudinary destroy failed: %v", ErrUpstream, err)
	}
	switch res.Result {
	case "ok":
		return nil
	case "not found":
		return fmt.Errorf("%w: media %s", ErrNotFound, publicID)
	default:
		return fmt.Errorf("%w: cloudinary destroy returned %q %s", ErrUpstream, res.Result, res.Error.Message)
	}
}

// UploadRaw stores a generated document and returns its secure URL.
func (s *MediaService) UploadRaw(ctx context.Context, data []byte, folder, publicID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:     publicID,
		Folder:       mediaRoot + "/" + folder,
		ResourceType: "raw",
	})
	if err != nil {
		return "", err
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload failed: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}
