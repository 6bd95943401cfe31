package models

import "time"

type Conversation struct {
	Id             string    `json:"id"`
	ClientId       string    `json:"clientId"`
	FreelancerId   string    `json:"freelancerId"`
	ClientName     string    `json:"clientName"`
	FreelancerName string    `json:"freelancerName"`
	CreatedAt      time.Time `json:"createdAt"`
}
