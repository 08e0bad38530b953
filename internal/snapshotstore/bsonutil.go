package snapshotstore

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func bsonID(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id}
}

func bsonSet(fields map[string]interface{}) bson.M {
	return bson.M{"$set": fields}
}
