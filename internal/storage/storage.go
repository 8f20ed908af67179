package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/keshon/santa/datastore"
)

const (
	commandHistoryLimit int = 20
	personaEventsLimit  int = 50
)

// Storage keeps one Record per guild in the datastore.
type Storage struct {
	ds *datastore.DataStore
	mu sync.Mutex // serializes read-modify-write of records
}

type CommandHistoryRecord struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	GuildName   string    `json:"guild_name"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Command     string    `json:"command"`
	Datetime    time.Time `json:"datetime"`
}

// PersonaEvent is an audit entry for a summon, banish or vanish of the Grinch.
type PersonaEvent struct {
	Action      string    `json:"action"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	WebhookID   string    `json:"webhook_id"`
	Datetime    time.Time `json:"datetime"`
}

type Record struct {
	CommandsHistory []CommandHistoryRecord `json:"commands_history"`
	CommandHashes   map[string]string      `json:"command_hashes"`
	PersonaEvents   []PersonaEvent         `json:"persona_events"`
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// getGuildRecord reads the record of a guild, returning an empty one when absent.
func (s *Storage) getGuildRecord(guildID string) (*Record, error) {
	var record Record
	if _, err := s.ds.Get(guildID, &record); err != nil {
		return nil, fmt.Errorf("error reading guild %s record: %w", guildID, err)
	}
	if record.CommandHashes == nil {
		record.CommandHashes = map[string]string{}
	}
	return &record, nil
}

// updateGuildRecord applies fn to the guild record and stores the result.
func (s *Storage) updateGuildRecord(guildID string, fn func(r *Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getGuildRecord(guildID)
	if err != nil {
		return err
	}
	fn(record)
	return s.ds.Put(guildID, record)
}

// trimTail keeps the last limit elements of list.
func trimTail[T any](list []T, limit int) []T {
	if len(list) > limit {
		return list[len(list)-limit:]
	}
	return list
}
