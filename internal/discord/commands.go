package discord

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"

	"github.com/keshon/santa/internal/command"
	"github.com/keshon/santa/internal/storage"
	"github.com/keshon/santa/pkg/cmd"
	"github.com/keshon/santa/pkg/retrylimit"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// commandAPI is the part of *discordgo.Session used to sync slash commands.
type commandAPI interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

// commandSync keeps the slash commands of each guild in line with the
// registry. Hashes of what was last registered live in storage.
type commandSync struct {
	api     commandAPI
	store   *storage.Storage
	limiter *retrylimit.AdaptiveLimiter
	retry   retrylimit.Config
}

func newCommandSync(api commandAPI, store *storage.Storage, rps float64) *commandSync {
	limit := rate.Limit(rps)
	retry := retrylimit.DefaultConfig()
	retry.StatusCode = restStatus
	return &commandSync{
		api:     api,
		store:   store,
		limiter: retrylimit.NewAdaptiveLimiter(limit, 1, limit*2, 0.5, 0.5),
		retry:   retry,
	}
}

// sync deletes remote commands missing from defs and creates the ones whose
// definition changed since the last sync.
func (cs *commandSync) sync(ctx context.Context, appID, guildID string, defs []*discordgo.ApplicationCommand) error {
	var remote []*discordgo.ApplicationCommand
	err := cs.call(ctx, func() (err error) {
		remote, err = cs.api.ApplicationCommands(appID, guildID, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to list commands: %w", err)
	}

	hashes, err := cs.store.CommandHashes(guildID)
	if err != nil {
		return err
	}

	wanted := make(map[string]string, len(defs))
	for _, d := range defs {
		wanted[d.Name] = hashCommand(d)
	}
	present := make(map[string]bool, len(remote))

	for _, rc := range remote {
		present[rc.Name] = true
		if _, ok := wanted[rc.Name]; ok {
			continue
		}
		log.Printf("[INFO] [%s] Deleting obsolete command: %s", guildID, rc.Name)
		err := cs.call(ctx, func() error {
			return cs.api.ApplicationCommandDelete(appID, guildID, rc.ID, discordgo.WithContext(ctx))
		})
		if err != nil {
			log.Printf("[ERR] [%s] Failed to delete %s: %v", guildID, rc.Name, err)
			continue
		}
		delete(hashes, rc.Name)
	}

	for _, d := range defs {
		h := wanted[d.Name]
		if hashes[d.Name] == h && present[d.Name] {
			continue
		}
		err := cs.call(ctx, func() error {
			_, err := cs.api.ApplicationCommandCreate(appID, guildID, d, discordgo.WithContext(ctx))
			return err
		})
		if err != nil {
			log.Printf("[ERR] [%s] Failed to register %s: %v", guildID, d.Name, err)
			continue
		}
		hashes[d.Name] = h
		log.Printf("[DONE] [%s] Registered: %s", guildID, d.Name)
	}

	return cs.store.SetCommandHashes(guildID, hashes)
}

// call runs fn paced by the limiter. Client errors other than 429 are not retried.
func (cs *commandSync) call(ctx context.Context, fn func() error) error {
	return retrylimit.Do(ctx, cs.limiter, cs.retry, func() error {
		err := fn()
		if status := restStatus(err); status >= 400 && status < 500 && status != http.StatusTooManyRequests {
			return &retrylimit.FatalError{Err: err}
		}
		return err
	})
}

// restStatus extracts the HTTP status of a discordgo REST failure.
func restStatus(err error) int {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return rest.Response.StatusCode
	}
	return 0
}

// commandDefinitions returns the slash definitions of every command in reg.
func commandDefinitions(reg *cmd.Registry) []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range reg.All() {
		sp, ok := c.(command.SlashProvider)
		if !ok {
			sp, ok = cmd.Root(c).(command.SlashProvider)
		}
		if !ok {
			continue
		}
		def := sp.SlashDefinition()
		if def == nil {
			continue
		}
		if def.Type == 0 {
			def.Type = discordgo.ChatApplicationCommand
		}
		defs = append(defs, def)
	}
	return defs
}

// hashCommand returns a deterministic SHA-256 of a command's stable fields.
func hashCommand(c *discordgo.ApplicationCommand) string {
	stable := map[string]interface{}{
		"name":        c.Name,
		"description": c.Description,
		"type":        c.Type,
	}
	if c.DefaultMemberPermissions != nil {
		stable["default_member_permissions"] = *c.DefaultMemberPermissions
	}
	if len(c.Options) > 0 {
		stable["options"] = normalizeOptions(c.Options)
	}
	data, _ := json.Marshal(stable)
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

func normalizeOptions(opts []*discordgo.ApplicationCommandOption) []map[string]interface{} {
	out := make([]map[string]interface{}, len(opts))
	for i, o := range opts {
		entry := map[string]interface{}{
			"name":        o.Name,
			"description": o.Description,
			"type":        o.Type,
			"required":    o.Required,
		}
		if len(o.Choices) > 0 {
			choices := make([]map[string]interface{}, len(o.Choices))
			for j, ch := range o.Choices {
				choices[j] = map[string]interface{}{"name": ch.Name, "value": ch.Value}
			}
			entry["choices"] = choices
		}
		if len(o.Options) > 0 {
			entry["options"] = normalizeOptions(o.Options)
		}
		out[i] = entry
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i]["name"].(string) < out[j]["name"].(string)
	})
	return out
}
