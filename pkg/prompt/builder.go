package prompt

import (
	"crypto/md5"
	"crypto/sha256"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gitscribe/gitscribe/pkg/model"
)

// DefaultMaxContentLength is the truncation threshold for document content
// injected into a prompt.
const DefaultMaxContentLength = 8000

// truncationMarker is appended when document content is cut short.
const truncationMarker = "\n\n...(内容が長いため省略されました)"

// Builder compiles repository context, document metadata, and document
// content into a system prompt, memoizing results in a TTL cache.
type Builder struct {
	cache *Cache
}

// NewBuilder creates a Builder whose cache entries live for ttl.
func NewBuilder(ttl time.Duration) *Builder {
	return &Builder{cache: NewCache(ttl)}
}

// Cache exposes the underlying cache for stats and clearing.
func (b *Builder) Cache() *Cache { return b.cache }

// BuildSystemPrompt renders the system prompt for the given view. It never
// fails: an unknown template id or missing required context downgrades to
// the minimal template, so the caller always gets a usable prompt.
func (b *Builder) BuildSystemPrompt(repo *model.RepositoryContext, doc *model.DocumentMetadata, content string, id TemplateID) string {
	if id == "" {
		id = TemplateContextualAssistant
	}

	key := CacheKey(id, repo, doc, content)
	if cached, ok := b.cache.Get(key); ok {
		return cached
	}

	tmpl, ok := Lookup(id)
	if !ok {
		log.Printf("Warning: unknown prompt template %q, falling back to %s", id, TemplateMinimal)
		tmpl = mustLookup(TemplateMinimal)
	}

	// A template must never render with missing required bindings —
	// downgrade to minimal regardless of what was requested.
	if (tmpl.RequiresRepository && repo == nil) || (tmpl.RequiresDocument && doc == nil) {
		tmpl = mustLookup(TemplateMinimal)
	}

	bindings := Bindings{Repository: repo, Document: doc}
	if content != "" && tmpl.ID != TemplateMinimal {
		bindings.ContentSection = fencedContent(content, doc)
	}

	rendered := tmpl.Render(bindings)
	b.cache.Set(key, rendered)

	repoName := "unknown"
	if repo != nil {
		repoName = repo.FullName()
	}
	log.Printf("Built system prompt: repository=%s template=%s", repoName, tmpl.ID)
	return rendered
}

func mustLookup(id TemplateID) Template {
	t, ok := Lookup(id)
	if !ok {
		panic(fmt.Sprintf("prompt template %q not registered", id))
	}
	return t
}

// fencedContent sanitizes content and wraps it in a fenced block labeled
// with the document type (default "text").
func fencedContent(content string, doc *model.DocumentMetadata) string {
	label := "text"
	if doc != nil && doc.Type != "" && doc.Type != model.TypeOther {
		label = string(doc.Type)
	}
	return fmt.Sprintf("```%s\n%s\n```", label, SanitizeContent(content, DefaultMaxContentLength))
}

// SanitizeContent prepares document content for prompt injection. Content
// longer than maxLength is truncated, backing off to the last newline when
// that newline sits past the halfway point of the cut (a clean break beats
// a mid-sentence cut), and a localized omission marker is appended. Literal
// triple-backtick sequences are always escaped so the content cannot break
// out of the prompt's fenced block.
func SanitizeContent(content string, maxLength int) string {
	truncated := false
	if maxLength > 0 && len(content) > maxLength {
		cut := content[:maxLength]
		if idx := strings.LastIndex(cut, "\n"); idx > maxLength/2 {
			cut = cut[:idx]
		}
		content = cut
		truncated = true
	}

	// Escape after truncation so the cut never lands inside an escape
	// sequence we produced.
	content = strings.ReplaceAll(content, "```", "\\`\\`\\`")

	if truncated {
		content += truncationMarker
	}
	return content
}

// CacheKey derives the deterministic cache key for a prompt build: the
// pipe-joined template id, context fields, metadata fields, and an 8-char
// MD5 digest of the content, hashed with SHA-256 and truncated to 16 hex
// characters. A pure function of its inputs.
func CacheKey(id TemplateID, repo *model.RepositoryContext, doc *model.DocumentMetadata, content string) string {
	parts := []string{string(id)}

	if repo != nil {
		path := repo.CurrentPath
		if path == "" {
			path = "root"
		}
		parts = append(parts, string(repo.Service), repo.Owner, repo.Repo, repo.Ref, path)
	}

	if doc != nil {
		modified := "unknown"
		if !doc.LastModified.IsZero() {
			modified = doc.LastModified.UTC().Format(time.RFC3339)
		}
		parts = append(parts, string(doc.Type), modified, fmt.Sprintf("%d", doc.FileSize))
	}

	if content != "" {
		digest := md5.Sum([]byte(content))
		parts = append(parts, fmt.Sprintf("%x", digest)[:8])
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%x", sum)[:16]
}
