package prompt

import (
	"fmt"
	"strings"

	"github.com/gitscribe/gitscribe/pkg/model"
)

// TemplateID names one of the closed set of prompt templates.
type TemplateID string

const (
	// TemplateContextualAssistant is the default document-assistant prompt.
	TemplateContextualAssistant TemplateID = "contextual_document_assistant_ja"
	// TemplateDocumentationSpecialist is used for README/docs-style files.
	TemplateDocumentationSpecialist TemplateID = "documentation_specialist_ja"
	// TemplateCodeReviewer is used for source-code files.
	TemplateCodeReviewer TemplateID = "code_reviewer_ja"
	// TemplateMinimal is the fallback prompt requiring no context at all.
	TemplateMinimal TemplateID = "minimal_context_ja"
)

// Bindings are the values a template renders against. Repository and
// Document may be nil; templates declare which of them they require.
type Bindings struct {
	Repository     *model.RepositoryContext
	Document       *model.DocumentMetadata
	ContentSection string
}

// Template is one prompt variant: a required-bindings list checked before
// rendering, and a pure render function. Render is only called once the
// required bindings are known to be present, so it never fails.
type Template struct {
	ID                 TemplateID
	RequiresRepository bool
	RequiresDocument   bool
	Render             func(b Bindings) string
}

// templates is the closed registry of prompt variants.
var templates = map[TemplateID]Template{
	TemplateContextualAssistant: {
		ID:                 TemplateContextualAssistant,
		RequiresRepository: true,
		RequiresDocument:   true,
		Render:             renderContextualAssistant,
	},
	TemplateDocumentationSpecialist: {
		ID:                 TemplateDocumentationSpecialist,
		RequiresRepository: true,
		RequiresDocument:   true,
		Render:             renderDocumentationSpecialist,
	},
	TemplateCodeReviewer: {
		ID:                 TemplateCodeReviewer,
		RequiresRepository: true,
		RequiresDocument:   true,
		Render:             renderCodeReviewer,
	},
	TemplateMinimal: {
		ID:     TemplateMinimal,
		Render: renderMinimal,
	},
}

// Lookup returns the template for id, or false when the id is unknown.
func Lookup(id TemplateID) (Template, bool) {
	t, ok := templates[id]
	return t, ok
}

// docPathKeywords are path fragments that mark a file as documentation
// regardless of its title.
var docPathKeywords = []string{"readme", "doc", "docs", "api", "spec", "guide", "manual"}

// SelectTemplate picks the most appropriate template for the given context.
// The decision table is evaluated top to bottom, first match wins:
// documentation files on documentation-looking paths get the specialist,
// code files get the reviewer, any other document gets the contextual
// assistant, and no metadata at all gets the minimal template.
func SelectTemplate(repo *model.RepositoryContext, doc *model.DocumentMetadata) TemplateID {
	if doc == nil {
		return TemplateMinimal
	}
	if doc.IsDocumentation() && repo != nil && pathLooksLikeDocs(repo.CurrentPath) {
		return TemplateDocumentationSpecialist
	}
	if doc.IsCodeFile() {
		return TemplateCodeReviewer
	}
	return TemplateContextualAssistant
}

func pathLooksLikeDocs(path string) bool {
	lower := strings.ToLower(path)
	for _, kw := range docPathKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// --- Render functions ---

func repositorySection(c *model.RepositoryContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "リポジトリ: %s (%s)\n", c.FullName(), c.Service)
	fmt.Fprintf(&sb, "ブランチ: %s\n", c.Ref)
	if c.CurrentPath != "" {
		fmt.Fprintf(&sb, "表示中のファイル: %s\n", c.CurrentPath)
	}
	if url := c.DocumentURL(); url != "" {
		fmt.Fprintf(&sb, "URL: %s\n", url)
	}
	return sb.String()
}

func documentSection(d *model.DocumentMetadata) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ドキュメント: %s (種類: %s)\n", d.DisplayName(), d.Type)
	if d.FileSize > 0 {
		fmt.Fprintf(&sb, "サイズ: %d バイト\n", d.FileSize)
	}
	if !d.LastModified.IsZero() {
		fmt.Fprintf(&sb, "最終更新: %s\n", d.LastModified.Format("2006-01-02 15:04:05"))
	}
	return sb.String()
}

func renderContextualAssistant(b Bindings) string {
	return fmt.Sprintf(`あなたはドキュメント閲覧を支援するAIアシスタントです。
ユーザーは現在、以下のリポジトリのドキュメントを閲覧しています。

## コンテキスト
%s%s
## ドキュメント内容
%s
## 指示
- 上記のドキュメント内容とリポジトリ情報に基づいて回答してください
- 質問に応じて、Issue作成やPull Request作成のツールを利用できます
- ツールを使う場合は、閲覧中のリポジトリに対してのみ操作してください
- 回答は日本語で、簡潔かつ正確に行ってください`,
		repositorySection(b.Repository), documentSection(b.Document), contentOrPlaceholder(b))
}

func renderDocumentationSpecialist(b Bindings) string {
	return fmt.Sprintf(`あなたは技術ドキュメントの専門家です。
ユーザーは現在、以下のドキュメントを閲覧しています。

## コンテキスト
%s%s
## ドキュメント内容
%s
## 指示
- ドキュメントの構成・内容・改善点について専門的な助言を行ってください
- 不足している情報や曖昧な記述を指摘してください
- 改善提案はIssueとして起票できます（閲覧中のリポジトリに対してのみ）
- 回答は日本語で行ってください`,
		repositorySection(b.Repository), documentSection(b.Document), contentOrPlaceholder(b))
}

func renderCodeReviewer(b Bindings) string {
	return fmt.Sprintf(`あなたは経験豊富なコードレビュアーです。
ユーザーは現在、以下のソースコードを閲覧しています。

## コンテキスト
%s%s
## コード
%s
## 指示
- コードの品質・可読性・潜在的なバグについてレビューしてください
- 重要な問題はIssueとして起票できます（閲覧中のリポジトリに対してのみ）
- 修正提案がある場合はPull Request作成ツールを利用できます
- 回答は日本語で行ってください`,
		repositorySection(b.Repository), documentSection(b.Document), contentOrPlaceholder(b))
}

func renderMinimal(b Bindings) string {
	var sb strings.Builder
	sb.WriteString("あなたは親切なAIアシスタントです。質問に日本語で簡潔に回答してください。\n")
	if b.Repository != nil {
		sb.WriteString("\n## コンテキスト\n")
		sb.WriteString(repositorySection(b.Repository))
	}
	return sb.String()
}

func contentOrPlaceholder(b Bindings) string {
	if b.ContentSection != "" {
		return b.ContentSection
	}
	return "（ドキュメント内容は提供されていません）"
}
