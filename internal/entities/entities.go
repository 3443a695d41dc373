package entities

import "time"

// User is a library member. Staff users manage the catalog and may act on
// any member's loans.
type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Username         string     `gorm:"uniqueIndex;size:100" json:"username"`
	Email            string     `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash     string     `gorm:"size:100" json:"-"`
	IsStaff          bool       `gorm:"default:false" json:"is_staff"`
	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Book is a catalog entry. Available is stored rather than derived on read:
// it must be true exactly when no unreturned Borrow references the book, and
// only the lending service may flip it.
type Book struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"index;size:512" json:"title"`
	Author      string    `gorm:"index;size:256" json:"author"`
	ISBN        string    `gorm:"index;size:20" json:"isbn,omitempty"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Available   bool      `gorm:"default:true" json:"available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Borrow records one user holding one book. A borrow is never deleted; its
// only transition is returned=false -> returned=true.
type Borrow struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index" json:"user_id"`
	BookID       uint      `gorm:"index" json:"book_id"`
	BorrowedDate time.Time `json:"borrowed_date"`
	DueDate      time.Time `json:"due_date"`
	Returned     bool      `gorm:"default:false;index" json:"returned"`
	User         User      `gorm:"foreignKey:UserID" json:"-"`
	Book         Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

// Reservation marks interest in a book. It carries no availability or
// uniqueness constraint; a member may reserve a borrowed book.
type Reservation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index" json:"user_id"`
	BookID       uint      `gorm:"index" json:"book_id"`
	ReservedDate time.Time `json:"reserved_date"`
	User         User      `gorm:"foreignKey:UserID" json:"-"`
	Book         Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

// Review is a per-user rating and comment for a book. Members may review the
// same book more than once.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	BookID    uint      `gorm:"index" json:"book_id"`
	Rating    int       `json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Book      Book      `gorm:"foreignKey:BookID" json:"-"`
}

// RefreshToken backs the API token refresh flow. The opaque value is stored
// as-is; rows are deleted on expiry or rotation.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;size:64" json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

func (Book) TableName() string {
	return "books"
}

func (Borrow) TableName() string {
	return "borrows"
}

func (Reservation) TableName() string {
	return "reservations"
}

func (Review) TableName() string {
	return "reviews"
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
