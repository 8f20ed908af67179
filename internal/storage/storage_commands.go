package storage

import "time"

// AppendCommandHistory records a command execution, keeping the most recent entries.
func (s *Storage) AppendCommandHistory(guildID, channelID, channelName, guildName, userID, username, command string) error {
	return s.updateGuildRecord(guildID, func(r *Record) {
		r.CommandsHistory = append(r.CommandsHistory, CommandHistoryRecord{
			ChannelID:   channelID,
			ChannelName: channelName,
			GuildName:   guildName,
			UserID:      userID,
			Username:    username,
			Command:     command,
			Datetime:    time.Now(),
		})
		r.CommandsHistory = trimTail(r.CommandsHistory, commandHistoryLimit)
	})
}

func (s *Storage) GetCommandsHistory(guildID string) ([]CommandHistoryRecord, error) {
	record, err := s.getGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandsHistory, nil
}

// CommandHashes returns the hashes of slash definitions last registered in a guild.
func (s *Storage) CommandHashes(guildID string) (map[string]string, error) {
	record, err := s.getGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandHashes, nil
}

func (s *Storage) SetCommandHashes(guildID string, hashes map[string]string) error {
	return s.updateGuildRecord(guildID, func(r *Record) {
		r.CommandHashes = make(map[string]string, len(hashes))
		for k, v := range hashes {
			r.CommandHashes[k] = v
		}
	})
}
