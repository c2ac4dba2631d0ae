package game

// Reference triggers for the special dice in the built-in catalog.
// Token mechanics are not modeled; effects that only moved tokens around are
// reduced to their health or dice consequences.

// countFace counts dice of the named kind showing face v.
func countFace(dice []DieState, dieName string, v int) int {
	n := 0
	for _, d := range dice {
		if d.Die.Name == dieName && d.Value == v {
			n++
		}
	}
	return n
}

// Bliss heals 1 for every Bliss die that rolls a 6.
func Bliss() Trigger {
	return &TriggerFunc{
		TriggerName: "bliss",
		On:          []TriggerKind{OnRoll},
		Fn: func(dc *DebateContext, ev TriggerEvent, player int) StateDelta {
			return StateDelta{Heal: countFace(ev.Dice, "Bliss", 6)}
		},
	}
}

// Comedown deals 1 damage to its owner for every Comedown die that rolls a 6.
func Comedown() Trigger {
	return &TriggerFunc{
		TriggerName: "comedown",
		On:          []TriggerKind{OnRoll},
		Fn: func(dc *DebateContext, ev TriggerEvent, player int) StateDelta {
			return StateDelta{SelfDamage: countFace(ev.Dice, "Comedown", 6)}
		},
	}
}

// Ridicule deals 1 damage to the opponent for every Ridicule die that rolls a 6.
func Ridicule() Trigger {
	return &TriggerFunc{
		TriggerName: "ridicule",
		On:          []TriggerKind{OnRoll},
		Fn: func(dc *DebateContext, ev TriggerEvent, player int) StateDelta {
			return StateDelta{OpponentDamage: countFace(ev.Dice, "Ridicule", 6)}
		},
	}
}

// Catastrophize busts the roll when its die shows a 1, unless a 6 from it was
// banked earlier in the debate.
func Catastrophize() Trigger {
	protected := false
	return &TriggerFunc{
		TriggerName: "catastrophize",
		On:          []TriggerKind{OnRoll, OnBank},
		Fn: func(dc *DebateContext, ev TriggerEvent, player int) StateDelta {
			switch ev.Kind {
			case OnBank:
				if countFace(ev.Dice, "Catastrophize", 6) > 0 {
					protected = true
				}
			case OnRoll:
				if !protected && countFace(ev.Dice, "Catastrophize", 1) > 0 {
					return StateDelta{ForceFumble: true}
				}
			}
			return StateDelta{}
		},
	}
}

// HighMinded raises an insult when a High-Minded 6 is banked in it: the
// insult's last die counts twice.
func HighMinded() Trigger {
	return &TriggerFunc{
		TriggerName: "high-minded",
		On:          []TriggerKind{OnBank},
		Fn: func(dc *DebateContext, ev TriggerEvent, player int) StateDelta {
			if ev.Insult == nil || len(ev.Insult.Faces) == 0 {
				return StateDelta{}
			}
			if countFace(ev.Dice, "High-Minded", 6) == 0 {
				return StateDelta{}
			}
			return StateDelta{BonusDamage: ev.Insult.Faces[len(ev.Insult.Faces)-1]}
		},
	}
}

// Catalepsy makes the opponent's highest live die waxy the first time its
// owner rolls a 6 while the opponent has a rolled, unfrozen die.
func Catalepsy() Trigger {
	used := false
	return &TriggerFunc{
		TriggerName: "catalepsy",
		On:          []TriggerKind{OnRoll},
		Fn: func(dc *DebateContext, ev TriggerEvent, player int) StateDelta {
			if used || ev.Roll[6] == 0 {
				return StateDelta{}
			}
			if opp := dc.Opponent(player); opp.Done() || opp.Dice.HighestUnfrozen() < 0 {
				return StateDelta{}
			}
			used = true
			return StateDelta{FreezeOpponent: 1}
		},
	}
}

// humorOf maps a die tag to its humor.
func humorOf(tag string) string {
	switch tag {
	case "red", "purple":
		return "sanguine"
	case "green", "blue":
		return "phlegmatic"
	case "gray":
		return "melancholic"
	case "yellow", "orange":
		return "choleric"
	}
	return ""
}

// TemperanceHumors sums banked face values per humor tag. On commit the
// player heals 1 if sanguine holds the highest sum, ties included.
func TemperanceHumors() Trigger {
	sums := map[string]int{}
	return &TriggerFunc{
		TriggerName: "temperance",
		On:          []TriggerKind{OnBank, OnCommit},
		Fn: func(dc *DebateContext, ev TriggerEvent, player int) StateDelta {
			if ev.Kind == OnBank {
				for _, d := range ev.Dice {
					if h := humorOf(d.Die.Tag); h != "" {
						sums[h] += d.Value
					}
				}
				return StateDelta{}
			}
			top := 0
			for _, v := range sums {
				if v > top {
					top = v
				}
			}
			if top > 0 && sums["sanguine"] == top {
				return StateDelta{Heal: 1}
			}
			return StateDelta{}
		},
	}
}

// Victimhood rolls a d6 whenever its owner takes more than 3 damage; if the
// result is below the damage taken the owner heals 1.
func Victimhood() Trigger {
	return &TriggerFunc{
		TriggerName: "victimhood",
		On:          []TriggerKind{OnDamage},
		Fn: func(dc *DebateContext, ev TriggerEvent, player int) StateDelta {
			if ev.Damage <= 3 {
				return StateDelta{}
			}
			if NormalDie().Roll(dc.Rand(player)) < ev.Damage {
				return StateDelta{Heal: 1}
			}
			return StateDelta{}
		},
	}
}
