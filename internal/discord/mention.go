package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// directory answers guild lookups; each returns a mention or "".
type directory interface {
	memberByID(id string) string
	roleByID(id string) string
	memberByName(name string) string
	roleByName(name string) string
}

// resolveMention tries member id, role id, member name, role name, in that order.
func resolveMention(dir directory, ident string) string {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return ""
	}
	if isDigits(ident) {
		if m := dir.memberByID(ident); m != "" {
			return m
		}
		if m := dir.roleByID(ident); m != "" {
			return m
		}
	}
	if m := dir.memberByName(ident); m != "" {
		return m
	}
	if m := dir.roleByName(ident); m != "" {
		return m
	}
	return "@" + ident
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

type guildDirectory struct {
	s       *discordgo.Session
	guildID string
	roles   []*discordgo.Role
}

func (g *guildDirectory) memberByID(id string) string {
	m, err := g.s.GuildMember(g.guildID, id)
	if err != nil || m == nil || m.User == nil {
		return ""
	}
	return m.Mention()
}

func (g *guildDirectory) loadRoles() []*discordgo.Role {
	if g.roles == nil {
		roles, err := g.s.GuildRoles(g.guildID)
		if err != nil {
			return nil
		}
		g.roles = roles
	}
	return g.roles
}

func (g *guildDirectory) roleByID(id string) string {
	for _, r := range g.loadRoles() {
		if r.ID == id {
			return r.Mention()
		}
	}
	return ""
}

func (g *guildDirectory) memberByName(name string) string {
	members, err := g.s.GuildMembersSearch(g.guildID, name, 10)
	if err != nil {
		return ""
	}
	for _, m := range members {
		if m.User == nil {
			continue
		}
		if m.User.Username == name || m.Nick == name || m.User.GlobalName == name {
			return m.Mention()
		}
	}
	return ""
}

func (g *guildDirectory) roleByName(name string) string {
	for _, r := range g.loadRoles() {
		if r.Name == name {
			return r.Mention()
		}
	}
	return ""
}
