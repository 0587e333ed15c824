package model

import (
	"context"

	"SMProject/data/database/mgo/mongoutil"
	"SMProject/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	projects     *mongo.Collection
	applications *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		projects:     db.Collection(ProjectCollection),
		applications: db.Collection(ApplicationCollection),
	}
}

// EnsureIndexes makes (projectId, musicianId) unique so concurrent applies
// cannot both succeed.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.projects.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}); err != nil {
		return errs.WrapMsg(err, "create project indexes")
	}
	_, err := s.applications.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "projectId", Value: 1}, {Key: "musicianId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errs.WrapMsg(err, "create application index")
}

func (s *MongoStore) CreateProject(ctx context.Context, p *Project) error {
	if _, err := s.projects.InsertOne(ctx, p); err != nil {
		if mongoutil.IsDuplicate(err) {
			return errs.ErrRecordIsExist.WrapMsg("project already exists", "id", p.ID)
		}
		return errs.WrapMsg(err, "insert project")
	}
	return nil
}

func (s *MongoStore) ProjectByID(ctx context.Context, id string) (*Project, error) {
	var p Project
	if err := s.projects.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if mongoutil.IsNotFound(err) {
			return nil, errs.ErrRecordNotFound.WrapMsg("project not found", "id", id)
		}
		return nil, errs.WrapMsg(err, "find project")
	}
	return &p, nil
}

func (s *MongoStore) ListProjects(ctx context.Context, f Filter, skip, limit int64) ([]*Project, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Visibility != "" {
		filter["visibility"] = f.Visibility
	}
	if f.ClientID != "" {
		filter["clientId"] = f.ClientID
	}
	total, err := s.projects.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errs.WrapMsg(err, "count projects")
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cur, err := s.projects.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, errs.WrapMsg(err, "list projects")
	}
	var ps []*Project
	if err := cur.All(ctx, &ps); err != nil {
		return nil, 0, errs.WrapMsg(err, "decode projects")
	}
	return ps, total, nil
}

func (s *MongoStore) ReplaceProject(ctx context.Context, p *Project) error {
	res, err := s.projects.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return errs.WrapMsg(err, "replace project", "id", p.ID)
	}
	if res.MatchedCount == 0 {
		return errs.ErrRecordNotFound.WrapMsg("project not found", "id", p.ID)
	}
	return nil
}

func (s *MongoStore) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.applications.DeleteMany(ctx, bson.M{"projectId": id}); err != nil {
		return errs.WrapMsg(err, "delete applications", "projectId", id)
	}
	res, err := s.projects.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errs.WrapMsg(err, "delete project", "id", id)
	}
	if res.DeletedCount == 0 {
		return errs.ErrRecordNotFound.WrapMsg("project not found", "id", id)
	}
	return nil
}

func (s *MongoStore) CreateApplication(ctx context.Context, a *Application) error {
	if _, err := s.applications.InsertOne(ctx, a); err != nil {
		if mongoutil.IsDuplicate(err) {
			return errs.ErrRecordIsExist.WrapMsg("you have already applied to this project")
		}
		return errs.WrapMsg(err, "insert application")
	}
	return nil
}

func (s *MongoStore) findApplication(ctx context.Context, filter bson.M) (*Application, error) {
	var a Application
	if err := s.applications.FindOne(ctx, filter).Decode(&a); err != nil {
		if mongoutil.IsNotFound(err) {
			return nil, errs.ErrRecordNotFound.WrapMsg("application not found")
		}
		return nil, errs.WrapMsg(err, "find application")
	}
	return &a, nil
}

func (s *MongoStore) ApplicationByID(ctx context.Context, id string) (*Application, error) {
	return s.findApplication(ctx, bson.M{"_id": id})
}

func (s *MongoStore) ApplicationFor(ctx context.Context, projectID, musicianID string) (*Application, error) {
	return s.findApplication(ctx, bson.M{"projectId": projectID, "musicianId": musicianID})
}

func (s *MongoStore) ApplicationsByProject(ctx context.Context, projectID string) ([]*Application, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := s.applications.Find(ctx, bson.M{"projectId": projectID}, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "list applications")
	}
	var out []*Application
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode applications")
	}
	return out, nil
}

func (s *MongoStore) ReplaceApplication(ctx context.Context, a *Application) error {
	res, err := s.applications.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if err != nil {
		return errs.WrapMsg(err, "replace application", "id", a.ID)
	}
	if res.MatchedCount == 0 {
		return errs.ErrRecordNotFound.WrapMsg("application not found", "id", a.ID)
	}
	return nil
}
