package room

import "sort"

// UserView is the externally visible projection of one member.
type UserView struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	HasSelectedCard bool       `json:"hasSelectedCard"`
	SelectedCard    *CardValue `json:"selectedCard,omitempty"`
}

// RoomView is the projection broadcast to every connection in a room.
// Selected cards and the average are withheld until the room is revealed.
type RoomView struct {
	Users      []UserView `json:"users"`
	IsRevealed bool       `json:"isRevealed"`
	Average    *float64   `json:"average,omitempty"`
}

// View builds the current projection of the room.
func (r *Room) View() RoomView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

func (r *Room) viewLocked() RoomView {
	members := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		members = append(members, u)
	}
	// Map iteration order is random; present members in join order.
	sort.Slice(members, func(i, j int) bool { return members[i].seq < members[j].seq })

	view := RoomView{
		Users:      make([]UserView, 0, len(members)),
		IsRevealed: r.revealed,
	}
	for _, u := range members {
		uv := UserView{
			ID:              u.ID,
			Name:            u.Name,
			HasSelectedCard: u.SelectedCard != nil,
		}
		if r.revealed && u.SelectedCard != nil {
			card := *u.SelectedCard
			uv.SelectedCard = &card
		}
		view.Users = append(view.Users, uv)
	}
	if r.revealed {
		if avg, ok := r.averageLocked(); ok {
			view.Average = &avg
		}
	}
	return view
}
