package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"crm/internal/models"
)

func TestMatchQuery(t *testing.T) {
	require.Equal(t, bson.M{}, matchQuery(models.CustomerFilter{}))

	assignee := primitive.NewObjectID()
	got := matchQuery(models.CustomerFilter{Status: models.StatusContacted, AssignedTo: &assignee, Skip: 5, Limit: 10})
	require.Equal(t, bson.M{"status": models.StatusContacted, "assignedTo": assignee}, got)
}

func TestSetDocumentOnlyCarriesSuppliedFields(t *testing.T) {
	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	name := "Acme"
	status := models.StatusClosed
	empty := []primitive.ObjectID(nil)

	got := setDocument(models.CustomerUpdate{Name: &name, Status: &status, AssignedTo: &empty}, at)

	require.Equal(t, bson.M{
		"updatedAt":  at,
		"name":       "Acme",
		"status":     models.StatusClosed,
		"assignedTo": []primitive.ObjectID{},
	}, got)
	require.NotContains(t, got, "createdBy")
	require.NotContains(t, got, "createdAt")
}
