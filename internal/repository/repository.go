package repository

import (
	"context"

	"nahb-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX - минимальный интерфейс запросов, которому удовлетворяют
// и *pgxpool.Pool, и pgx.Tx. Позволяет репозиториям работать
// как с пулом, так и внутри транзакции.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository - хранилище пользователей (PostgreSQL).
type UserRepository interface {
	// CreateUser вставляет нового пользователя и заполняет user.ID и user.CreatedAt.
	// Возвращает models.ErrUserAlreadyExists / models.ErrEmailAlreadyExists при дубликатах.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByUsername возвращает models.ErrUserNotFound, если пользователь не найден.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByEmail возвращает models.ErrUserNotFound, если пользователь не найден.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID возвращает models.ErrUserNotFound, если пользователь не найден.
	GetUserByID(ctx context.Context, id uint64) (*models.User, error)

	// ListUsersWithCounts возвращает пользователей со счетчиками историй и сессий (для админки).
	ListUsersWithCounts(ctx context.Context, limit, offset int) ([]models.UserWithCounts, error)

	// SetUserBanStatus устанавливает флаг бана. models.ErrUserNotFound, если пользователя нет.
	SetUserBanStatus(ctx context.Context, userID uint64, isBanned bool) error
}

// StoryRepository - структурное хранилище историй (PostgreSQL).
type StoryRepository interface {
	// Create вставляет историю и заполняет story.ID, story.CreatedAt, story.UpdatedAt.
	Create(ctx context.Context, story *models.Story) error

	// GetByID возвращает models.ErrNotFound, если история не найдена.
	GetByID(ctx context.Context, id int64) (*models.Story, error)

	// ApplyPatch обновляет только переданные в патче поля и updated_at.
	ApplyPatch(ctx context.Context, id int64, patch models.StoryPatch) error

	// SetSuspended устанавливает флаг модераторской блокировки.
	SetSuspended(ctx context.Context, id int64, suspended bool) error

	// Delete удаляет историю (страницы, выборы и FK-ссылки каскадируются схемой).
	Delete(ctx context.Context, id int64) error

	// ListPublished возвращает каталог: опубликованные и не заблокированные истории.
	// Непустой search фильтрует по вхождению в заголовок (без учета регистра).
	ListPublished(ctx context.Context, search string, limit, offset int) ([]models.StoryWithMeta, error)

	// ListByAuthor возвращает все истории автора, включая черновики.
	ListByAuthor(ctx context.Context, authorID uint64, limit, offset int) ([]models.Story, error)

	// ListStatistics возвращает агрегированную статистику по историям (для админки).
	ListStatistics(ctx context.Context, limit, offset int) ([]models.StoryStatistics, error)

	// GetGlobalStatistics возвращает сводные счетчики платформы.
	GetGlobalStatistics(ctx context.Context) (*models.GlobalStatistics, error)
}

// PageRepository - хранилище страниц (узлов графа) истории.
type PageRepository interface {
	// Create вставляет страницу и заполняет page.ID, page.CreatedAt, page.UpdatedAt.
	Create(ctx context.Context, page *models.Page) error

	// GetByID возвращает models.ErrNotFound, если страница не найдена.
	GetByID(ctx context.Context, id int64) (*models.Page, error)

	// SetIsEnding обновляет флаг концовки страницы.
	SetIsEnding(ctx context.Context, id int64, isEnding bool) error

	// Delete удаляет страницу; исходящие выборы каскадируются,
	// входящие ссылки обнуляются схемой.
	Delete(ctx context.Context, id int64) error

	// ListByStory возвращает все страницы истории в порядке создания.
	ListByStory(ctx context.Context, storyID int64) ([]models.Page, error)

	// ListIDsByStory возвращает идентификаторы всех страниц истории.
	ListIDsByStory(ctx context.Context, storyID int64) ([]int64, error)
}

// ChoiceRepository - хранилище выборов (ребер графа).
type ChoiceRepository interface {
	// Create вставляет выбор и заполняет choice.ID, choice.CreatedAt, choice.UpdatedAt.
	Create(ctx context.Context, choice *models.Choice) error

	// GetByID возвращает models.ErrNotFound, если выбор не найден.
	GetByID(ctx context.Context, id int64) (*models.Choice, error)

	// SetTarget обновляет целевую страницу выбора (nil означает тупик).
	SetTarget(ctx context.Context, id int64, targetPageID *int64) error

	// Delete удаляет выбор.
	Delete(ctx context.Context, id int64) error

	// ListByPage возвращает все выборы страницы в порядке создания.
	ListByPage(ctx context.Context, pageID int64) ([]models.Choice, error)

	// ListIDsByStory возвращает идентификаторы всех выборов всех страниц истории.
	ListIDsByStory(ctx context.Context, storyID int64) ([]int64, error)
}

// SessionRepository - хранилище игровых сессий (прохождений).
type SessionRepository interface {
	// Create вставляет сессию и заполняет session.StartedAt.
	Create(ctx context.Context, session *models.GameSession) error

	// GetByID возвращает models.ErrNotFound, если сессия не найдена.
	GetByID(ctx context.Context, id uuid.UUID) (*models.GameSession, error)

	// CloseIfOpen атомарно закрывает сессию, если она еще открыта.
	// Возвращает false, если сессия уже была закрыта (конкурентный ход).
	CloseIfOpen(ctx context.Context, id uuid.UUID, endingPageID *int64) (bool, error)

	// ListByUser возвращает сессии пользователя, новые первыми.
	ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]models.SessionWithStory, error)
}

// ContentRepository - хранилище контента (MongoDB).
// Отсутствующий документ - штатная ситуация: Get* возвращают models.ErrNotFound,
// а вызывающий код подставляет пустой контент по умолчанию.
type ContentRepository interface {
	UpsertPageContent(ctx context.Context, content *models.PageContent) error
	GetPageContent(ctx context.Context, pageID int64) (*models.PageContent, error)
	// GetPageContentBatch возвращает контент страниц одним запросом ($in).
	// Отсутствующие документы просто не попадают в результат.
	GetPageContentBatch(ctx context.Context, pageIDs []int64) (map[int64]models.PageContent, error)
	DeletePageContents(ctx context.Context, pageIDs []int64) error

	UpsertChoiceContent(ctx context.Context, content *models.ChoiceContent) error
	GetChoiceContent(ctx context.Context, choiceID int64) (*models.ChoiceContent, error)
	// GetChoiceContentBatch возвращает тексты выборов одним запросом ($in).
	// Отсутствующие документы просто не попадают в результат.
	GetChoiceContentBatch(ctx context.Context, choiceIDs []int64) (map[int64]models.ChoiceContent, error)
	DeleteChoiceContents(ctx context.Context, choiceIDs []int64) error

	UpsertStoryContent(ctx context.Context, content *models.StoryContent) error
	GetStoryContent(ctx context.Context, storyID int64) (*models.StoryContent, error)
	DeleteStoryContent(ctx context.Context, storyID int64) error
}

// TokenRepository - хранилище выданных токенов (Redis).
type TokenRepository interface {
	// SetToken сохраняет UUID access/refresh токенов с соответствующими TTL.
	SetToken(ctx context.Context, userID uint64, td *models.TokenDetails) error

	// DeleteTokens удаляет указанные UUID токенов. Возвращает число удаленных ключей.
	DeleteTokens(ctx context.Context, userID uint64, accessUUID, refreshUUID string) (int64, error)

	// GetUserIDByAccessUUID возвращает models.ErrTokenNotFound, если токен не найден или истек.
	GetUserIDByAccessUUID(ctx context.Context, accessUUID string) (uint64, error)

	// GetUserIDByRefreshUUID возвращает models.ErrTokenNotFound, если токен не найден или истек.
	GetUserIDByRefreshUUID(ctx context.Context, refreshUUID string) (uint64, error)

	// DeleteTokensByUserID удаляет все токены пользователя (используется при бане).
	DeleteTokensByUserID(ctx context.Context, userID uint64) (int64, error)
}
