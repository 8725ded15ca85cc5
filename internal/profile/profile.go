// Package profile is the site owner's descriptive data. It fills the page
// sections and seeds the chat assistant's instructions. It is read once at
// startup and never changes afterwards.
package profile

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profile.yaml
var defaultProfile []byte

type Project struct {
	Name         string   `yaml:"name" json:"name"`
	Description  string   `yaml:"description" json:"description"`
	Technologies []string `yaml:"technologies" json:"technologies"`
	Status       string   `yaml:"status" json:"status"`
	URL          string   `yaml:"url,omitempty" json:"url,omitempty"`
}

type Certification struct {
	Name   string `yaml:"name" json:"name"`
	Issuer string `yaml:"issuer" json:"issuer"`
	Year   string `yaml:"year" json:"year"`
}

type Contact struct {
	Email     string `yaml:"email" json:"email"`
	GitHub    string `yaml:"github,omitempty" json:"github,omitempty"`
	LinkedIn  string `yaml:"linkedin,omitempty" json:"linkedin,omitempty"`
	Twitter   string `yaml:"twitter,omitempty" json:"twitter,omitempty"`
	Facebook  string `yaml:"facebook,omitempty" json:"facebook,omitempty"`
	Instagram string `yaml:"instagram,omitempty" json:"instagram,omitempty"`
}

// Profile is the persona config plus the static page content.
type Profile struct {
	Name               string              `yaml:"name" json:"name"`
	Title              string              `yaml:"title" json:"title"`
	HeroTitles         []string            `yaml:"hero_titles" json:"hero_titles"`
	About              string              `yaml:"about" json:"about"`
	Background         string              `yaml:"background" json:"background"`
	CommunicationStyle string              `yaml:"communication_style" json:"communication_style"`
	Skills             map[string][]string `yaml:"skills" json:"skills"`
	Projects           []Project           `yaml:"projects" json:"projects"`
	Certifications     []Certification     `yaml:"certifications" json:"certifications"`
	Contact            Contact             `yaml:"contact" json:"contact"`
	Interests          []string            `yaml:"interests" json:"interests"`
	AdditionalInfo     string              `yaml:"additional_info" json:"additional_info"`
	Behavior           []string            `yaml:"behavior" json:"behavior"`
}

// Default returns the embedded profile.
func Default() (*Profile, error) {
	return Parse(defaultProfile)
}

// Load reads the profile at path, or the embedded one when path is empty.
func Load(path string) (*Profile, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and checks the fields the site cannot do without.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	p.trim()
	if p.Name == "" {
		return nil, errors.New("profile: name is required")
	}
	if p.Contact.Email == "" {
		return nil, errors.New("profile: contact.email is required")
	}
	if len(p.HeroTitles) == 0 && p.Title != "" {
		p.HeroTitles = []string{p.Title}
	}
	return &p, nil
}

func (p *Profile) trim() {
	p.Name = strings.TrimSpace(p.Name)
	p.Title = strings.TrimSpace(p.Title)
	p.About = strings.TrimSpace(p.About)
	p.Background = strings.TrimSpace(p.Background)
	p.CommunicationStyle = strings.TrimSpace(p.CommunicationStyle)
	p.AdditionalInfo = strings.TrimSpace(p.AdditionalInfo)
	p.Contact.Email = strings.TrimSpace(p.Contact.Email)
}

// FirstName is used in the chat header ("Chat with Keaton").
func (p *Profile) FirstName() string {
	if i := strings.IndexByte(p.Name, ' '); i > 0 {
		return p.Name[:i]
	}
	return p.Name
}

// SkillGroup is one skills category, for ordered rendering.
type SkillGroup struct {
	Category string
	Skills   []string
}

// SkillGroups returns the skills sorted by category name.
func (p *Profile) SkillGroups() []SkillGroup {
	cats := make([]string, 0, len(p.Skills))
	for c := range p.Skills {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	out := make([]SkillGroup, 0, len(cats))
	for _, c := range cats {
		out = append(out, SkillGroup{Category: c, Skills: p.Skills[c]})
	}
	return out
}

// SystemPrompt builds the instruction string sent ahead of every chat
// conversation. The output is deterministic for a given profile.
func (p *Profile) SystemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %s. You are responding to visitors on your portfolio website.\n", p.Name, p.Title)

	section := func(title, body string) {
		if body == "" {
			return
		}
		fmt.Fprintf(&b, "\n**%s:**\n%s\n", title, body)
	}
	list := func(items []string) string {
		if len(items) == 0 {
			return ""
		}
		return "- " + strings.Join(items, "\n- ")
	}

	section("About You", p.Background)
	section("Communication Style", p.CommunicationStyle)

	skills := make([]string, 0, len(p.Skills))
	for _, g := range p.SkillGroups() {
		skills = append(skills, g.Category+": "+strings.Join(g.Skills, ", "))
	}
	section("Skills", list(skills))

	projects := make([]string, 0, len(p.Projects))
	for _, pr := range p.Projects {
		line := pr.Name + " - " + pr.Description
		if len(pr.Technologies) > 0 {
			line += " (" + strings.Join(pr.Technologies, ", ") + ")"
		}
		if pr.Status != "" {
			line += " [" + pr.Status + "]"
		}
		projects = append(projects, line)
	}
	section("Projects", list(projects))

	certs := make([]string, 0, len(p.Certifications))
	for _, c := range p.Certifications {
		certs = append(certs, fmt.Sprintf("%s, %s (%s)", c.Name, c.Issuer, c.Year))
	}
	section("Certifications", list(certs))
	section("Interests", list(p.Interests))
	section("Contact", "Email: "+p.Contact.Email)
	section("Additional Information", p.AdditionalInfo)
	section("Behavior", list(p.Behavior))

	b.WriteString("\nRemember to be helpful, professional, and enthusiastic about technology. Keep responses concise but informative.")
	return b.String()
}
