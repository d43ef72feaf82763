package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"
)

var ErrNotInitialized = errors.New("storage: not initialized")

var cosClient *cos.Client
var timeoutSeconds = 100

var filenameAccessCheck string = "timestampLastRegister"
var cosFrontendHost string
var cosFrontendScheme string

// 与 COS Bucket 绑定，建议不要修改
var usernameSalt string

type Options struct {
	SecretID     string
	SecretKey    string
	Bucket       string // 形如 name-appid
	Region       string
	FrontendHost string // 为空时使用 bucket 默认域名
	HTTPS        bool
	Salt         string
}

// Init 创建 COS 客户端，并写入一个时间戳对象检查权限
func Init(ctx context.Context, opts Options) (err error) {
	cosEndpoint := fmt.Sprintf("https://%s.cos.%s.myqcloud.com", opts.Bucket, opts.Region)
	u, err := url.Parse(cosEndpoint)
	if err != nil {
		return fmt.Errorf("invalid cos endpoint %s: %w", cosEndpoint, err)
	}
	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Timeout: time.Duration(timeoutSeconds) * time.Second,
		Transport: &cos.AuthorizationTransport{
			SecretID:  opts.SecretID,
			SecretKey: opts.SecretKey,
		},
	})
	_, err = client.Object.Put(ctx, filenameAccessCheck, strings.NewReader(time.Now().String()), nil)
	if err != nil {
		slog.Error("cos access check failed", "bucket", opts.Bucket, "region", opts.Region, "error", err)
		return fmt.Errorf("cos access check failed: %w", err)
	}

	cosClient = client
	setFrontend(opts)
	slog.Info("cos storage initialized", "bucket", opts.Bucket, "frontendHost", cosFrontendHost)
	return nil
}

func setFrontend(opts Options) {
	cosFrontendHost = opts.FrontendHost
	if cosFrontendHost == "" {
		cosFrontendHost = fmt.Sprintf("%s.cos.%s.myqcloud.com", opts.Bucket, opts.Region)
	}
	if opts.HTTPS {
		cosFrontendScheme = "https"
	} else {
		cosFrontendScheme = "http"
	}
	usernameSalt = opts.Salt
}

func CalcPath(userIdentifier string) string {
	hasher := sha1.New()
	hasher.Write([]byte(userIdentifier + usernameSalt))
	return hex.EncodeToString(hasher.Sum(nil))[:15]
}

func objectKey(targetFileName string, userIdentifier string) string {
	userPath := CalcPath(userIdentifier)
	timePath := CalcPath(time.Now().String())[:4]
	return path.Join(userPath, timePath, targetFileName)
}

func publicURL(key string) string {
	return cosFrontendScheme + "://" + cosFrontendHost + "/" + key
}

// UploadRawContent puts converted text into the bucket and returns its public URL.
func UploadRawContent(ctx context.Context, content string, targetFileName string, userIdentifier string) (downloadUrl string, err error) {
	if cosClient == nil {
		return "", ErrNotInitialized
	}
	key := objectKey(targetFileName, userIdentifier)
	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType: "text/plain; charset=utf-8",
		},
	}
	if _, err = cosClient.Object.Put(ctx, key, strings.NewReader(content), opt); err != nil {
		slog.Error("cos upload failed", "key", key, "error", err)
		return "", fmt.Errorf("cos upload failed: %w", err)
	}
	downloadUrl = publicURL(key)
	slog.Info("content uploaded to cos", "key", key, "url", downloadUrl)
	return downloadUrl, nil
}
