package store

import "time"

// Post statuses.
const (
	PostDraft     = "draft"
	PostPublished = "published"
)

// Task progress values.
const (
	ProgressTodo       = "todo"
	ProgressInProgress = "in-progress"
	ProgressDone       = "done"
)

// Account is a registered user. The password hash never leaves the process.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        *string   `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Bio          string    `json:"bio"`
	AvatarKey    string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type NewAccount struct {
	Username     string
	Email        *string
	PasswordHash string
	Role         string
	FirstName    string
	LastName     string
	Bio          string
}

// AccountPatch lists the fields an update may touch; nil means unchanged.
type AccountPatch struct {
	Username     *string
	Email        *string
	PasswordHash *string
	Role         *string
	FirstName    *string
	LastName     *string
	Bio          *string
	AvatarKey    *string
}

type Post struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Content         string    `json:"content"`
	Status          string    `json:"status"`
	PublicationDate time.Time `json:"publication_date"`
	AuthorID        int64     `json:"author_id"`
	CategoryID      *int64    `json:"category_id"`
	Tags            []Tag     `json:"tags"`
}

// NewPost is a post to insert. Slug is the derived base; the stored slug
// gets the row id appended.
type NewPost struct {
	Title      string
	Slug       string
	Content    string
	Status     string
	AuthorID   int64
	CategoryID *int64
}

type PostPatch struct {
	Title      *string
	Slug       *string
	Content    *string
	Status     *string
	CategoryID *int64
}

type PostFilter struct {
	Skip     int
	Limit    int
	Status   string
	AuthorID int64
}

type Comment struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	AuthorID  int64     `json:"author_id"`
	PostID    int64     `json:"post_id"`
}

type NewComment struct {
	Content  string
	AuthorID int64
	PostID   int64
}

type CommentPatch struct {
	Content *string
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type CategoryPatch struct {
	Name *string
	Slug *string
}

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Task struct {
	ID        int64      `json:"task_id"`
	Name      string     `json:"name"`
	Progress  string     `json:"progress"`
	Sprint    int        `json:"sprint"`
	StartDate *time.Time `json:"start_date"`
	OwnerID   int64      `json:"owner_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// TaskInput is the full mutable state of a task, used by create and replace.
type TaskInput struct {
	Name      string
	Progress  string
	Sprint    int
	StartDate *time.Time
}

type TaskPatch struct {
	Name      *string
	Progress  *string
	Sprint    *int
	StartDate *time.Time
}

type TaskFilter struct {
	Sprint   *int
	Progress string
	OwnerID  int64
}

type Product struct {
	ID       int64  `json:"product_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    int    `json:"price"`
}

type ProductInput struct {
	Name     string
	Category string
	Price    int
}

type ProductPatch struct {
	Name     *string
	Category *string
	Price    *int
}

type ProductFilter struct {
	Category string
	MaxPrice *float64
}

type Order struct {
	ID         int64   `json:"id"`
	CustomerID int64   `json:"customer_id"`
	Status     string  `json:"status"`
	Items      []int64 `json:"items"`
}

type OrderInput struct {
	Status string
	Items  []int64
}

type OrderPatch struct {
	Status *string
	Items  *[]int64
}

type OrderFilter struct {
	CustomerID *int64
	Status     string
}
