package formats

import "fmt"

// Directions of 8-way sprites, in action order.
var directionNames = [8]string{"S", "SW", "W", "NW", "N", "NE", "E", "SE"}

// Action type names. Tables with up to 8 action types are monsters; larger ones are players.
var (
	monsterActionNames = []string{"Idle", "Walk", "Attack", "Damage", "Die", "Attack 2", "Attack 3", "Special"}
	playerActionNames  = []string{
		"Idle", "Walk", "Sit", "Pick Up", "Standby", "Attack 1", "Damage", "Die", "Dead",
		"Attack 2", "Attack 3", "Skill Cast", "Skill Ready", "Freeze",
	}
)

// GetActionName names action index of a table with total actions, e.g. "Walk SW".
// Tables that are not a multiple of 8 directions use "Action N".
func GetActionName(index, total int) string {
	if total < 8 || total%8 != 0 {
		return fmt.Sprintf("Action %d", index)
	}

	names := playerActionNames
	if total/8 <= 8 {
		names = monsterActionNames
	}

	kind := index / 8
	typeName := fmt.Sprintf("Action%d", kind)
	if kind < len(names) {
		typeName = names[kind]
	}
	return typeName + " " + directionNames[index%8]
}
