package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	BaseURL   = "http://localhost:8080"
	WSURL     = "ws://localhost:8080/ws"
	PairCount = 250 // ⚠️ Start small. Each pair is two users and two sockets.
	MsgCount  = 20  // Messages per user
)

type AuthResponse struct {
	Token    string `json:"access_token"`
	ID       int    `json:"id"`
	Username string `json:"username"`
}

func main() {
	log.Printf("🔥 STARTING STRESS TEST: %d users, %d messages each...", PairCount*2, MsgCount)
	var wg sync.WaitGroup

	// Pairs: user 0 talks to user 1, user 2 to user 3...
	for i := 0; i < PairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}

	wg.Wait()
	log.Println("✅ LOAD TEST COMPLETE")
}

func runPair(pairID int) {
	userA := fmt.Sprintf("u_%d_a", pairID)
	userB := fmt.Sprintf("u_%d_b", pairID)
	pass := "password123"

	// 1. Register & Login both sides
	a := authenticate(userA, pass)
	b := authenticate(userB, pass)
	if a == nil || b == nil {
		return
	}

	// 2. Become friends: A requests, B accepts
	if !befriend(a, b) {
		return
	}

	// 3. Both sides connect, join the pair room and spam
	var wsWg sync.WaitGroup
	wsWg.Add(2)
	go spamChat(&wsWg, a, b.ID)
	go spamChat(&wsWg, b, a.ID)
	wsWg.Wait()
}

// authenticate registers (ignores error if the user exists) and logs in.
func authenticate(username, pass string) *AuthResponse {
	email := username + "@loadtest.local"
	postJSON("/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": pass,
	})

	resp, err := postJSON("/login", "", map[string]string{"email": email, "password": pass})
	if err != nil {
		log.Printf("❌ Login failed [%s]: %v", username, err)
		return nil
	}
	defer resp.Body.Close()

	var data AuthResponse
	json.NewDecoder(resp.Body).Decode(&data)
	if data.Token == "" {
		log.Printf("❌ Login returned no token [%s]", username)
		return nil
	}
	return &data
}

func befriend(a, b *AuthResponse) bool {
	// Duplicate/already-friends conflicts are fine on reruns.
	resp, err := postJSON("/api/friends/request", a.Token, map[string]int{"to_id": b.ID})
	if err != nil {
		log.Printf("❌ Friend request failed: %v", err)
		return false
	}
	resp.Body.Close()

	resp, err = postJSON("/api/friends/accept", b.Token, map[string]int{"from_id": a.ID})
	if err != nil {
		log.Printf("❌ Friend accept failed: %v", err)
		return false
	}
	resp.Body.Close()
	return true
}

func spamChat(wg *sync.WaitGroup, me *AuthResponse, counterpart int) {
	defer wg.Done()

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s?token=%s", WSURL, me.Token), nil)
	if err != nil {
		log.Printf("❌ WS connect fail [%s]: %v", me.Username, err)
		return
	}
	defer conn.Close()

	// Drain server events so the write buffer never backs up.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	join := map[string]interface{}{
		"event":         "join",
		"userId":        me.ID,
		"counterpartId": counterpart,
	}
	if err := conn.WriteJSON(join); err != nil {
		log.Printf("❌ Join fail [%s]: %v", me.Username, err)
		return
	}

	for i := 0; i < MsgCount; i++ {
		msg := map[string]interface{}{
			"event": "send_message",
			"to":    counterpart,
			"text":  fmt.Sprintf("LoadTest msg %d from %s", i, me.Username),
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("❌ Send fail [%s]: %v", me.Username, err)
			break
		}
		// Small sleep to prevent instant localhost bottleneck (simulate real network)
		time.Sleep(10 * time.Millisecond)
	}
	log.Printf("✅ %s finished sending %d msgs", me.Username, MsgCount)
}

func postJSON(endpoint, token string, data interface{}) (*http.Response, error) {
	jsonData, _ := json.Marshal(data)
	req, err := http.NewRequest("POST", BaseURL+endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(req)
}
