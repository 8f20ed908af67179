package storage

// AppendPersonaEvent records a Grinch lifecycle event for a guild.
func (s *Storage) AppendPersonaEvent(guildID string, event PersonaEvent) error {
	return s.updateGuildRecord(guildID, func(r *Record) {
		r.PersonaEvents = append(r.PersonaEvents, event)
		r.PersonaEvents = trimTail(r.PersonaEvents, personaEventsLimit)
	})
}

func (s *Storage) GetPersonaEvents(guildID string) ([]PersonaEvent, error) {
	record, err := s.getGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.PersonaEvents, nil
}
