package upload

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

type CloudinaryConfig struct {
	BaseURL   string
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Cloudinary performs signed uploads against the Cloudinary upload API.
type Cloudinary struct {
	cfg    CloudinaryConfig
	client *http.Client
	now    func() time.Time
}

func NewCloudinary(cfg CloudinaryConfig, client *http.Client) (*Cloudinary, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary: cloud name, api key and api secret are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cloudinary.com"
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Cloudinary{cfg: cfg, client: client, now: time.Now}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, path string, blob []byte) (string, error) {
	publicID := strings.TrimSuffix(path, pathExt(path))
	if c.cfg.Folder != "" {
		publicID = c.cfg.Folder + "/" + publicID
	}
	ts := strconv.FormatInt(c.now().Unix(), 10)
	// signature is sha1 over the sorted signed params followed by the secret
	sig := sha1.Sum([]byte("public_id=" + publicID + "&timestamp=" + ts + c.cfg.APISecret))

	form := url.Values{}
	form.Set("file", "data:"+mimetype.Detect(blob).String()+";base64,"+base64.StdEncoding.EncodeToString(blob))
	form.Set("api_key", c.cfg.APIKey)
	form.Set("public_id", publicID)
	form.Set("timestamp", ts)
	form.Set("signature", fmt.Sprintf("%x", sig))

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1_1/" + c.cfg.CloudName + "/image/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("cloudinary read: %w", err)
	}

	var out struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("cloudinary status %d: %w", res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK || out.Error.Message != "" {
		return "", fmt.Errorf("cloudinary status %d: %s", res.StatusCode, out.Error.Message)
	}
	if out.SecureURL != "" {
		return out.SecureURL, nil
	}
	if out.URL == "" {
		return "", fmt.Errorf("cloudinary: no url in response")
	}
	return out.URL, nil
}

func pathExt(p string) string {
	i := strings.LastIndex(p, ".")
	if i == -1 || strings.Contains(p[i:], "/") {
		return ""
	}
	return p[i:]
}
