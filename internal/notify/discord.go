package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domain "github.com/avelichko/catalog-sync/pkg/types"
)

const (
	colorGreen  = 0x2ECC71 // clean run
	colorYellow = 0xF1C40F // partial failures
	colorRed    = 0xE74C3C // fatal failure
)

// DiscordNotifier implements Notifier via Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string, opts ...DiscordOption) *DiscordNotifier {
	d := &DiscordNotifier{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscordOption configures a DiscordNotifier.
type DiscordOption func(*DiscordNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordNotifier) {
		d.client = c
	}
}

// discordWebhookPayload is the Discord webhook JSON structure.
type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// SendSyncReport sends a full sync summary as a Discord embed.
func (d *DiscordNotifier) SendSyncReport(ctx context.Context, report *domain.SyncReport) error {
	errCount := len(report.FlattenErrors())
	color := colorGreen
	if errCount > 0 {
		color = colorYellow
	}

	embed := discordEmbed{
		Title: "Catalog sync completed",
		Color: color,
		Fields: []discordEmbedField{
			stageField("Trademarks", report.Trademarks),
			stageField("Categories", report.Categories),
			stageField("Products", report.Products),
			{Name: "Errors", Value: fmt.Sprintf("%d", errCount), Inline: true},
			{
				Name:  "Duration",
				Value: report.FinishedAt.Sub(report.StartedAt).Round(time.Second).String(),
			},
		},
	}

	return d.post(ctx, discordWebhookPayload{Embeds: []discordEmbed{embed}})
}

// SendSyncFailure sends a fatal sync failure message.
func (d *DiscordNotifier) SendSyncFailure(
	ctx context.Context,
	entity domain.EntityKind,
	err error,
) error {
	embed := discordEmbed{
		Title:       fmt.Sprintf("Catalog sync failed: %s", entity),
		Color:       colorRed,
		Description: err.Error(),
	}
	return d.post(ctx, discordWebhookPayload{Embeds: []discordEmbed{embed}})
}

func stageField(name string, res *domain.SyncResult) discordEmbedField {
	if res == nil {
		return discordEmbedField{Name: name, Value: "did not run", Inline: true}
	}
	return discordEmbedField{
		Name: name,
		Value: fmt.Sprintf("%d fetched / %d new / %d updated",
			res.TotalFetched, res.NewCount, res.UpdatedCount),
		Inline: true,
	}
}

func (d *DiscordNotifier) post(ctx context.Context, payload discordWebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("discord returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
