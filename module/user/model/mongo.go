package model

import (
	"context"

	"SMProject/data/database/mgo/mongoutil"
	"SMProject/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the Store backed by three collections.
type MongoStore struct {
	users     *mongo.Collection
	musicians *mongo.Collection
	clients   *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		users:     db.Collection(UserCollection),
		musicians: db.Collection(MusicianProfileCollection),
		clients:   db.Collection(ClientProfileCollection),
	}
}

// EnsureIndexes creates the unique email and profile owner indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userType", Value: 1}, {Key: "createdAt", Value: 1}}},
	}); err != nil {
		return errs.WrapMsg(err, "create user indexes")
	}
	unique := mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)}
	if _, err := s.musicians.Indexes().CreateOne(ctx, unique); err != nil {
		return errs.WrapMsg(err, "create musician profile index")
	}
	if _, err := s.clients.Indexes().CreateOne(ctx, unique); err != nil {
		return errs.WrapMsg(err, "create client profile index")
	}
	return nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u *User) error {
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongoutil.IsDuplicate(err) {
			return errs.ErrRecordIsExist.WrapMsg("user already exists", "email", u.Email)
		}
		return errs.WrapMsg(err, "insert user")
	}
	return nil
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*User, error) {
	var u User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if mongoutil.IsNotFound(err) {
			return nil, errs.ErrRecordNotFound.WrapMsg("user not found")
		}
		return nil, errs.WrapMsg(err, "find user")
	}
	return &u, nil
}

func (s *MongoStore) UserByID(ctx context.Context, id string) (*User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) UsersByIDs(ctx context.Context, ids []string) (map[string]*User, error) {
	out := make(map[string]*User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errs.WrapMsg(err, "find users")
	}
	var users []*User
	if err := cur.All(ctx, &users); err != nil {
		return nil, errs.WrapMsg(err, "decode users")
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (s *MongoStore) ListUsers(ctx context.Context, userType string, skip, limit int64) ([]*User, int64, error) {
	filter := bson.M{"userType": userType}
	total, err := s.users.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errs.WrapMsg(err, "count users")
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)
	cur, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, errs.WrapMsg(err, "list users")
	}
	var users []*User
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, errs.WrapMsg(err, "decode users")
	}
	return users, total, nil
}

func (s *MongoStore) MusicianProfile(ctx context.Context, userID string) (*MusicianProfile, error) {
	var p MusicianProfile
	if err := s.musicians.FindOne(ctx, bson.M{"userId": userID}).Decode(&p); err != nil {
		if mongoutil.IsNotFound(err) {
			return nil, errs.ErrRecordNotFound.WrapMsg("musician profile not found", "userId", userID)
		}
		return nil, errs.WrapMsg(err, "find musician profile")
	}
	return &p, nil
}

func (s *MongoStore) MusicianProfiles(ctx context.Context, userIDs []string) (map[string]*MusicianProfile, error) {
	out := make(map[string]*MusicianProfile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	cur, err := s.musicians.Find(ctx, bson.M{"userId": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, errs.WrapMsg(err, "find musician profiles")
	}
	var ps []*MusicianProfile
	if err := cur.All(ctx, &ps); err != nil {
		return nil, errs.WrapMsg(err, "decode musician profiles")
	}
	for _, p := range ps {
		out[p.UserID] = p
	}
	return out, nil
}

func (s *MongoStore) SaveMusicianProfile(ctx context.Context, p *MusicianProfile) error {
	_, err := s.musicians.ReplaceOne(ctx, bson.M{"userId": p.UserID}, p, options.Replace().SetUpsert(true))
	return errs.WrapMsg(err, "save musician profile", "userId", p.UserID)
}

func (s *MongoStore) ClientProfile(ctx context.Context, userID string) (*ClientProfile, error) {
	var p ClientProfile
	if err := s.clients.FindOne(ctx, bson.M{"userId": userID}).Decode(&p); err != nil {
		if mongoutil.IsNotFound(err) {
			return nil, errs.ErrRecordNotFound.WrapMsg("client profile not found", "userId", userID)
		}
		return nil, errs.WrapMsg(err, "find client profile")
	}
	return &p, nil
}

func (s *MongoStore) SaveClientProfile(ctx context.Context, p *ClientProfile) error {
	_, err := s.clients.ReplaceOne(ctx, bson.M{"userId": p.UserID}, p, options.Replace().SetUpsert(true))
	return errs.WrapMsg(err, "save client profile", "userId", p.UserID)
}
