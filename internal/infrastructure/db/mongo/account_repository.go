package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storehub/admin-identity/internal/core/domain"
)

const collectionAccounts = "accounts"

// AccountRepository implements ports.AccountRepository on MongoDB.
type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionAccounts)}
}

// mongoAccount is the storage shape. The otp field is written as null when no
// challenge is open so that a stale code cannot survive a clear.
type mongoAccount struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	PendingEmail string             `bson:"pending_email,omitempty"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
	Address      string             `bson:"address,omitempty"`
	PhoneNumber  string             `bson:"phone_number,omitempty"`
	Avatar       string             `bson:"avatar,omitempty"`
	OTP          *int               `bson:"otp"`
	OTPExpiresAt int64              `bson:"otp_expires_at,omitempty"`
	IsVerified   bool               `bson:"is_verified"`
	AccessToken  string             `bson:"access_token,omitempty"`
	Version      int64              `bson:"version"`
	CreatedAt    int64              `bson:"created_at"`
	UpdatedAt    int64              `bson:"updated_at"`
}

// Create inserts a new account document. Unique-index violations on email,
// phone_number or avatar surface as domain.ErrAccountExists.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoAccount(account)
	doc.Version = 1

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAccountExists
		}
		return nil, err
	}

	id, _ := res.InsertedID.(primitive.ObjectID)
	doc.ID = id
	return fromMongoAccount(&doc), nil
}

// FindByID retrieves an account by its hex object id.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindByEmail retrieves an account by its committed email address.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// Update rewrites the document if and only if the stored version still equals
// account.Version; the write bumps the version. A miss means another mutation
// landed first and yields domain.ErrConcurrentUpdate.
func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(account.ID)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}

	doc := toMongoAccount(account)
	update := bson.M{
		"$set": bson.M{
			"name":           doc.Name,
			"email":          doc.Email,
			"pending_email":  doc.PendingEmail,
			"password_hash":  doc.PasswordHash,
			"role":           doc.Role,
			"address":        doc.Address,
			"phone_number":   doc.PhoneNumber,
			"avatar":         doc.Avatar,
			"otp":            doc.OTP,
			"otp_expires_at": doc.OTPExpiresAt,
			"is_verified":    doc.IsVerified,
			"access_token":   doc.AccessToken,
			"updated_at":     doc.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid, "version": account.Version}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAccountExists
		}
		return nil, err
	}
	if res.MatchedCount == 0 {
		// Distinguish a vanished document from a lost version race.
		if n, countErr := r.col.CountDocuments(ctx, bson.M{"_id": oid}); countErr == nil && n == 0 {
			return nil, domain.ErrAccountNotFound
		}
		return nil, domain.ErrConcurrentUpdate
	}

	updated := *account
	updated.Version = account.Version + 1
	return &updated, nil
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoAccount
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return fromMongoAccount(&doc), nil
}

// EnsureIndexes creates the uniqueness constraints the account invariants
// rely on. phone_number and avatar are optional, hence sparse.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "phone_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "avatar", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func toMongoAccount(a *domain.Account) mongoAccount {
	doc := mongoAccount{
		Name:         a.Name,
		Email:        a.Email,
		PendingEmail: a.PendingEmail,
		PasswordHash: a.PasswordHash,
		Role:         string(a.Role),
		Address:      a.Address,
		PhoneNumber:  a.PhoneNumber,
		Avatar:       a.Avatar,
		OTP:          a.OTP,
		IsVerified:   a.IsVerified,
		AccessToken:  a.AccessToken,
		Version:      a.Version,
		CreatedAt:    a.CreatedAt.Unix(),
		UpdatedAt:    a.UpdatedAt.Unix(),
	}
	if !a.OTPExpiresAt.IsZero() {
		doc.OTPExpiresAt = a.OTPExpiresAt.Unix()
	}
	return doc
}

func fromMongoAccount(doc *mongoAccount) *domain.Account {
	a := &domain.Account{
		ID:           doc.ID.Hex(),
		Name:         doc.Name,
		Email:        doc.Email,
		PendingEmail: doc.PendingEmail,
		PasswordHash: doc.PasswordHash,
		Role:         domain.Role(doc.Role),
		Address:      doc.Address,
		PhoneNumber:  doc.PhoneNumber,
		Avatar:       doc.Avatar,
		OTP:          doc.OTP,
		IsVerified:   doc.IsVerified,
		AccessToken:  doc.AccessToken,
		Version:      doc.Version,
		CreatedAt:    unixToTime(doc.CreatedAt),
		UpdatedAt:    unixToTime(doc.UpdatedAt),
	}
	if doc.OTPExpiresAt != 0 {
		a.OTPExpiresAt = unixToTime(doc.OTPExpiresAt)
	}
	return a
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
