package app

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gocarina/gocsv"

	"github.com/antlu/community-bot/internal/discord"
)

type TranscriptLine struct {
	SentAt      time.Time `csv:"sent_at"`
	Author      string    `csv:"author"`
	Content     string    `csv:"content"`
	Attachments string    `csv:"attachments"`
}

// Transcript is a ticket channel's history, oldest message first.
type Transcript []TranscriptLine

func NewTranscript(messages []*discordgo.Message) Transcript {
	sorted := slices.Clone(messages)
	slices.SortStableFunc(sorted, func(a, b *discordgo.Message) int {
		return cmp.Compare(a.Timestamp.UnixNano(), b.Timestamp.UnixNano())
	})

	transcript := make(Transcript, 0, len(sorted))
	for _, m := range sorted {
		author := "unknown"
		if m.Author != nil {
			author = discord.Tag(m.Author)
		}

		urls := make([]string, 0, len(m.Attachments))
		for _, att := range m.Attachments {
			urls = append(urls, att.URL)
		}

		transcript = append(transcript, TranscriptLine{
			SentAt:      m.Timestamp,
			Author:      author,
			Content:     m.Content,
			Attachments: strings.Join(urls, " "),
		})
	}

	return transcript
}

// String renders one "author: content" line per message.
func (t Transcript) String() string {
	lines := make([]string, 0, len(t))
	for _, line := range t {
		lines = append(lines, line.Author+": "+line.Content)
	}
	return strings.Join(lines, "\n")
}

func (t Transcript) CSV() ([]byte, error) {
	lines := []TranscriptLine(t)
	return gocsv.MarshalBytes(&lines)
}
