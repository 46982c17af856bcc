package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dpdjournals/marketing-service/internal/campaign"
	"github.com/dpdjournals/marketing-service/internal/common"
	"github.com/dpdjournals/marketing-service/internal/site"
	"github.com/dpdjournals/marketing-service/internal/storage"
)

// Seeds the database file with demo content: a couple of blog posts and
// campaign items that come due shortly after the server starts.
func main() {
	ctx := context.Background()

	cfg, err := common.LoadConfig("seeder")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := common.NewLogger(cfg.ServiceName)

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer db.Close()

	campaignStore, err := campaign.NewSQLiteStore(db)
	if err != nil {
		logger.Fatal().Err(err).Msg("init campaign store")
	}
	blogStore, err := site.NewStore(db)
	if err != nil {
		logger.Fatal().Err(err).Msg("init blog store")
	}

	posts := []site.Post{
		{
			Slug:  "ai-in-healthcare",
			Title: "AI in Healthcare: 2025 Outlook",
			Body:  "<p>Our editors review the year in clinical AI.</p>",
		},
		{
			Slug:  "open-access-week",
			Title: "Open Access Week at DPD Journals",
			Body:  "<p>Every flagship title is free to read this week.</p>",
		},
	}
	for _, post := range posts {
		if _, err := blogStore.CreatePost(ctx, post); err != nil {
			logger.Warn().Err(err).Str("slug", post.Slug).Msg("skipping post")
			continue
		}
		logger.Info().Str("slug", post.Slug).Msg("seeded blog post")
	}

	emailPayload, _ := json.Marshal(campaign.EmailPayload{
		Subject: "New issue: AI in Healthcare",
		Body:    `Read it now: <a href="/blog/ai-in-healthcare?utm_source=newsletter&utm_medium=email&utm_campaign=AugIssue">Open</a>`,
		ToList:  "subscribers@dpd",
	})

	now := time.Now().UTC()
	items := []campaign.Item{
		{
			ID:          uuid.NewString(),
			Channel:     campaign.ChannelLinkedIn,
			Payload:     "Our 2025 healthcare AI outlook is live. /track?utm_source=linkedin&utm_medium=social&utm_campaign=AugLaunch",
			ScheduledAt: now.Add(time.Minute),
			Status:      campaign.StatusPending,
			CreatedAt:   now,
		},
		{
			ID:          uuid.NewString(),
			Channel:     campaign.ChannelEmail,
			Payload:     string(emailPayload),
			ScheduledAt: now.Add(2 * time.Minute),
			Status:      campaign.StatusPending,
			CreatedAt:   now,
		},
	}
	for _, item := range items {
		if err := campaignStore.CreateItem(ctx, item); err != nil {
			logger.Fatal().Err(err).Msg("seed campaign item")
		}
		logger.Info().Str("id", item.ID).Str("channel", string(item.Channel)).Msg("seeded campaign item")
	}

	logger.Info().Msg("seeding complete")
}
