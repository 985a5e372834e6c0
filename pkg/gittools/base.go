package gittools

import (
	"errors"

	"github.com/gitscribe/gitscribe/pkg/model"
)

// ValidateRequest is the mandatory security gate every adapter operation
// runs first. It checks that an ambient repository context was supplied and
// is well-formed, then that the repository the caller is about to act on is
// byte-for-byte the one the user is viewing. An LLM-driven tool call can
// only ever touch the repository in view, never an arbitrary repository
// named in free-text output.
//
// On success it returns the parsed context and the resolved target
// repository. On failure it returns a non-nil failure envelope.
func ValidateRequest(requested string, ambient map[string]any) (*model.RepositoryContext, string, *Result) {
	if ambient == nil {
		r := Fail(ErrContextRequired, "リポジトリコンテキストが必要です。閲覧中のリポジトリ情報を指定してください。")
		return nil, "", &r
	}

	ctx, err := model.ContextFromMap(ambient)
	if err != nil {
		r := Fail(ErrValidation, "リポジトリコンテキストが不正です: %v", err)
		return nil, "", &r
	}

	if requested == "" {
		requested = ctx.FullName()
	}
	if requested != ctx.FullName() {
		// Worded to state both the requested and the permitted repository.
		r := Fail(ErrAccessDenied,
			"リポジトリ %q への操作は許可されていません。操作できるのは閲覧中のリポジトリ %q のみです。",
			requested, ctx.FullName())
		return nil, "", &r
	}

	return ctx, requested, nil
}

// TranslateError rewrites a client error into a localized failure envelope.
// Known service errors (not-found, unauthorized) get user-facing Japanese
// messages naming the service; anything unexpected falls through to a
// generic envelope.
func TranslateError(service model.Service, err error) Result {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		switch svcErr.Type {
		case ErrRepoNotFound:
			return Fail(ErrRepoNotFound, "リポジトリが見つかりません（%s）。リポジトリ名を確認してください。", service)
		case ErrAuthFailed:
			return Fail(ErrAuthFailed, "%s の認証に失敗しました。アクセストークンを確認してください。", service)
		default:
			return Fail(ErrUnexpected, "%s でエラーが発生しました: %s", service, svcErr.Message)
		}
	}
	return Fail(ErrUnexpected, "予期しないエラーが発生しました: %v", err)
}

// ResolveBase returns base when set, else "main".
func ResolveBase(base string) string {
	if base == "" {
		return "main"
	}
	return base
}

// RequireIssueFields checks the user-supplied fields of an issue request.
func RequireIssueFields(req IssueRequest) *Result {
	if req.Title == "" {
		r := Fail(ErrValidation, "タイトルは必須です")
		return &r
	}
	return nil
}

// RequirePullRequestFields checks the user-supplied fields of a PR request.
func RequirePullRequestFields(req PullRequestRequest) *Result {
	if req.Title == "" {
		r := Fail(ErrValidation, "タイトルは必須です")
		return &r
	}
	if req.HeadBranch == "" {
		r := Fail(ErrValidation, "作成元ブランチ（head_branch）は必須です")
		return &r
	}
	return nil
}
