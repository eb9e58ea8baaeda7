package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Token   string
	GuildID string

	CommunityRole string

	StaffRole      string
	TicketParentID string
	ArchiveChannel string

	GiveawayChannelID string
	GiveawayRole      string
	ResultsChannelID  string
	TeamRole          string
	GiveawayMin       time.Duration
	GiveawayMax       time.Duration

	LobbyChannel    string
	TempVoiceParent string
	TempRoomPrefix  string

	DBPath        string
	TranscriptKey string

	MetricsAddr string
	LogLevel    string
	LogFormat   string
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := Config{
		Token:   os.Getenv("BOT_TOKEN"),
		GuildID: os.Getenv("BOT_GUILD_ID"),

		CommunityRole: getenv("BOT_COMMUNITY_ROLE", "Community"),

		StaffRole:      getenv("BOT_STAFF_ROLE", "ticket-admin"),
		TicketParentID: os.Getenv("BOT_TICKET_PARENT_ID"),
		ArchiveChannel: getenv("BOT_ARCHIVE_CHANNEL", "ticket-archives"),

		GiveawayChannelID: os.Getenv("BOT_GIVEAWAY_CHANNEL_ID"),
		GiveawayRole:      getenv("BOT_GIVEAWAY_ROLE", "giveaway"),
		ResultsChannelID:  os.Getenv("BOT_RESULTS_CHANNEL_ID"),
		TeamRole:          getenv("BOT_TEAM_ROLE", "TEAM"),

		LobbyChannel:    getenv("BOT_LOBBY_CHANNEL", "Join->Temp-VC"),
		TempVoiceParent: os.Getenv("BOT_TEMP_VOICE_PARENT_ID"),
		TempRoomPrefix:  getenv("BOT_TEMP_ROOM_PREFIX", "VC "),

		DBPath:        getenv("BOT_DB_PATH", "db.sqlite3"),
		TranscriptKey: os.Getenv("BOT_TRANSCRIPT_KEY"),

		MetricsAddr: getenv("BOT_METRICS_ADDR", ":3000"),
		LogLevel:    getenv("BOT_LOG_LEVEL", "info"),
		LogFormat:   getenv("BOT_LOG_FORMAT", "json"),
	}

	minMinutes, err := atoi("BOT_GIVEAWAY_MIN_MINUTES", "1")
	if err != nil {
		return Config{}, err
	}
	maxMinutes, err := atoi("BOT_GIVEAWAY_MAX_MINUTES", "43200")
	if err != nil {
		return Config{}, err
	}
	cfg.GiveawayMin = time.Duration(minMinutes) * time.Minute
	cfg.GiveawayMax = time.Duration(maxMinutes) * time.Minute

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Token == "" {
		return errors.New("BOT_TOKEN must be set")
	}
	if c.GiveawayMin <= 0 {
		return errors.New("giveaway minimum duration must be positive")
	}
	if c.GiveawayMax < c.GiveawayMin {
		return fmt.Errorf("giveaway maximum %s is below minimum %s", c.GiveawayMax, c.GiveawayMin)
	}
	if c.TempRoomPrefix == "" {
		return errors.New("temporary room prefix must not be empty")
	}
	if c.TranscriptKey != "" {
		key, err := hex.DecodeString(c.TranscriptKey)
		if err != nil || len(key) != 32 {
			return errors.New("BOT_TRANSCRIPT_KEY must be 64 hex characters")
		}
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(key, def string) (int, error) {
	v, err := strconv.Atoi(getenv(key, def))
	if err != nil {
		return 0, fmt.Errorf("%s is not a number: %w", key, err)
	}
	return v, nil
}
