package utils

import (
	"context"
	"fmt"
	"log"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/HSouheill/ridelink_backend/config"
	"github.com/HSouheill/ridelink_backend/models"
	"github.com/HSouheill/ridelink_backend/websocket"
)

// SaveNotification saves a notification to the database
func SaveNotification(db *mongo.Client, memberID primitive.ObjectID, title, message, notifType string, data interface{}) error {
	collection := config.GetCollection(db, "notifications")

	notification := models.Notification{
		ID:        primitive.NewObjectID(),
		MemberID:  memberID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Data:      data,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	_, err := collection.InsertOne(context.Background(), notification)
	return err
}

// Notifier fans wallet-credit and rank-advance events out to the websocket
// hub, FCM push, and the in-app notification collection. Every path is
// fire-and-forget: a delivery failure is logged and never fails the credit
// that triggered it. Satisfies services.CreditNotifier.
type Notifier struct {
	db  *mongo.Client
	hub *websocket.Hub
}

func NewNotifier(db *mongo.Client, hub *websocket.Hub) *Notifier {
	return &Notifier{db: db, hub: hub}
}

// NotifyWalletCredit announces a wallet credit to the member.
func (n *Notifier) NotifyWalletCredit(memberID primitive.ObjectID, txn models.WalletTransaction) {
	go func() {
		title := "Wallet credited"
		message := fmt.Sprintf("You received %.2f", txn.Amount)
		if txn.Kind == models.WalletKindUplineCredit {
			message = fmt.Sprintf("You received %.2f from a level %d team ride", txn.Amount, txn.Level)
		}

		if err := SaveNotification(n.db, memberID, title, message, websocket.NotificationTypeWalletCredit, txn); err != nil {
			log.Printf("Failed to save wallet credit notification for %s: %v", memberID.Hex(), err)
		}
		if n.hub != nil {
			n.hub.NotifyWalletCredit(memberID, txn)
		}
		n.sendPush(memberID, title, message)
	}()
}

// NotifyRankAdvance announces a rank advancement to the member.
func (n *Notifier) NotifyRankAdvance(memberID primitive.ObjectID, advance models.RankAdvance) {
	go func() {
		title := "New rank achieved"
		message := fmt.Sprintf("You advanced from %s to %s", advance.From, advance.To)

		if err := SaveNotification(n.db, memberID, title, message, websocket.NotificationTypeRankAdvance, advance); err != nil {
			log.Printf("Failed to save rank notification for %s: %v", memberID.Hex(), err)
		}
		if n.hub != nil {
			n.hub.NotifyRankAdvance(memberID, advance)
		}
		n.sendPush(memberID, title, message)
	}()
}

// sendPush delivers an FCM push when the member has a registered token and
// Firebase is configured.
func (n *Notifier) sendPush(memberID primitive.ObjectID, title, body string) {
	if config.FirebaseApp == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var member struct {
		FCMToken string `bson:"fcmToken"`
	}
	err := config.GetCollection(n.db, "members").FindOne(ctx, bson.M{"_id": memberID}).Decode(&member)
	if err != nil || member.FCMToken == "" {
		return
	}

	client, err := config.FirebaseApp.Messaging(ctx)
	if err != nil {
		log.Printf("Failed to get FCM client: %v", err)
		return
	}

	_, err = client.Send(ctx, &messaging.Message{
		Token: member.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
	})
	if err != nil {
		log.Printf("Failed to send push to %s: %v", memberID.Hex(), err)
	}
}
