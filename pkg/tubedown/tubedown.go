// Package tubedown downloads media through an HTTP resolver API that lists
// the direct format URLs of a video page.
package tubedown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"autocut/log"
	apperrors "autocut/pkg/errors"
	"autocut/pkg/util"

	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const DefaultEndpoint = "https://tubedown.cn/api/youtube"

var (
	VideoQualities = []string{"1080p", "720p", "480p", "360p", "240p", "144p"}
	AudioQualities = []string{"medium, DRC", "medium", "low, DRC", "low"}
)

// Format is one downloadable rendition. Audio renditions carry an Asr
// (sample rate); video-only ones do not.
type Format struct {
	URL        string `json:"url"`
	FormatNote string `json:"format_note"`
	Filesize   *int64 `json:"filesize"`
	Asr        *int   `json:"asr"`
	Ext        string `json:"ext"`
}

type resolveResp struct {
	Data struct {
		Formats []Format `json:"formats"`
	} `json:"data"`
}

type Client struct {
	Endpoint string
	Retry    util.RetryPolicy

	api      *resty.Client
	download *resty.Client
}

func New(endpoint, proxy string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	api := resty.New().SetTimeout(30 * time.Second)
	download := resty.New().SetTimeout(0)
	if proxy != "" {
		api.SetProxy(proxy)
		download.SetProxy(proxy)
	}
	return &Client{Endpoint: endpoint, Retry: util.DefaultRetryPolicy, api: api, download: download}
}

// Formats asks the resolver for every rendition of sourceRef.
func (c *Client) Formats(ctx context.Context, sourceRef string) ([]Format, error) {
	var result resolveResp
	err := util.Retry(ctx, "tubedown resolve", c.Retry, func() error {
		resp, err := c.api.R().
			SetContext(ctx).
			SetBody(map[string]string{"url": sourceRef}).
			SetResult(&result).
			Post(c.Endpoint)
		if err != nil {
			return err
		}
		if resp.IsError() {
			err = fmt.Errorf("resolver returned %s", resp.Status())
			if resp.StatusCode() < 500 && resp.StatusCode() != 429 {
				return util.Permanent(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result.Data.Formats, nil
}

// PickVideo returns the URL of the largest video-only rendition of an accepted quality.
func PickVideo(formats []Format) (string, bool) {
	return largest(lo.Filter(formats, func(f Format, _ int) bool {
		return f.Asr == nil && f.Filesize != nil && lo.Contains(VideoQualities, f.FormatNote)
	}))
}

// PickAudio returns the URL of the largest audio rendition of an accepted quality.
func PickAudio(formats []Format) (string, bool) {
	return largest(lo.Filter(formats, func(f Format, _ int) bool {
		return f.Asr != nil && f.Filesize != nil && lo.Contains(AudioQualities, f.FormatNote)
	}))
}

func largest(formats []Format) (string, bool) {
	if len(formats) == 0 {
		return "", false
	}
	best := lo.MaxBy(formats, func(a, b Format) bool { return *a.Filesize > *b.Filesize })
	return best.URL, true
}

func (c *Client) DownloadVideo(ctx context.Context, sourceRef, outputPath string) error {
	if err := c.fetch(ctx, sourceRef, outputPath, PickVideo); err != nil {
		return apperrors.Wrap(apperrors.CodeVideoDownload, "video download failed", err)
	}
	return nil
}

func (c *Client) DownloadAudio(ctx context.Context, sourceRef, outputPath string) error {
	if err := c.fetch(ctx, sourceRef, outputPath, PickAudio); err != nil {
		return apperrors.Wrap(apperrors.CodeAudioDownload, "audio download failed", err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, sourceRef, outputPath string, pick func([]Format) (string, bool)) error {
	if path, ok := util.IsLocalRef(sourceRef); ok {
		return util.CopyFile(path, outputPath)
	}
	formats, err := c.Formats(ctx, sourceRef)
	if err != nil {
		return err
	}
	url, ok := pick(formats)
	if !ok {
		return apperrors.WrapWithDetail(apperrors.CodeVideoNotFound, "no acceptable format", sourceRef, nil)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	tmp := outputPath + ".part"
	log.GetLogger().Info("downloading", zap.String("ref", sourceRef), zap.String("output", outputPath))
	err = util.Retry(ctx, "tubedown download", c.Retry, func() error {
		resp, err := c.download.R().SetContext(ctx).SetOutput(tmp).Get(url)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("download returned %s", resp.Status())
		}
		return nil
	})
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, outputPath)
}
