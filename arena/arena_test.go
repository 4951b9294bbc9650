package arena

import (
	"math"
	"testing"

	"github.com/skirmishlab/vanguard/world"
)

func testArena() *Arena {
	return New(Options{
		Extent:      5000,
		CellSize:    250,
		WeaponRange: 900,
		UnitDPS:     100,
		HullPerUnit: 100,
		Seed:        7,
	})
}

func armed(n int) []world.Unit {
	units := make([]world.Unit, n)
	for i := range units {
		units[i].Weapon = true
	}
	return units
}

func unarmed(n int) []world.Unit {
	return make([]world.Unit, n)
}

func TestSpawnAndQuery(t *testing.T) {
	a := testArena()

	id := a.Spawn(world.Vec3{X: 100, Z: 200}, 0, armed(2), 40)

	pos, ok := a.PositionOf(id)
	if !ok || pos.X != 100 || pos.Z != 200 {
		t.Errorf("PositionOf = %+v, %v", pos, ok)
	}
	if hp, ok := a.IntegrityOf(id); !ok || hp != 1 {
		t.Errorf("IntegrityOf = %v, %v, want 1", hp, ok)
	}
	comp := a.StructuralComposition(id)
	if len(comp) != 2 || !comp[0].Weapon {
		t.Errorf("composition = %+v", comp)
	}
	if a.Count() != 1 {
		t.Errorf("Count = %d, want 1", a.Count())
	}
}

func TestRadiusQuery(t *testing.T) {
	a := testArena()

	near := a.Spawn(world.Vec3{X: 100}, 0, unarmed(1), 0)
	far := a.Spawn(world.Vec3{X: 2000}, 0, unarmed(1), 0)

	got := a.EntitiesWithinRadius(world.Vec3{}, 500)
	if len(got) != 1 || got[0] != near {
		t.Errorf("EntitiesWithinRadius = %v, want [%d]", got, near)
	}

	got = a.EntitiesWithinRadius(world.Vec3{}, 3000)
	if len(got) != 2 {
		t.Errorf("wide query = %v, want both %d and %d", got, near, far)
	}
}

func TestFactionRelations(t *testing.T) {
	a := testArena()
	a.SetStance(0, 1, world.RelationHostile)

	friend1 := a.Spawn(world.Vec3{}, 0, unarmed(1), 0)
	friend2 := a.Spawn(world.Vec3{X: 10}, 0, unarmed(1), 0)
	enemy := a.Spawn(world.Vec3{X: 20}, 1, unarmed(1), 0)
	stranger := a.Spawn(world.Vec3{X: 30}, 2, unarmed(1), 0)

	if got := a.FactionRelation(friend1, friend2); got != world.RelationAllied {
		t.Errorf("same faction = %s, want allied", got)
	}
	if got := a.FactionRelation(friend1, enemy); got != world.RelationHostile {
		t.Errorf("declared stance = %s, want hostile", got)
	}
	if got := a.FactionRelation(enemy, friend1); got != world.RelationHostile {
		t.Errorf("stance not symmetric: %s", got)
	}
	if got := a.FactionRelation(friend1, stranger); got != world.RelationNeutral {
		t.Errorf("undeclared stance = %s, want neutral", got)
	}
	if got := a.FactionRelation(friend1, 9999); got != world.RelationUnknown {
		t.Errorf("missing entity = %s, want unknown", got)
	}
}

func TestMoveToAndStep(t *testing.T) {
	a := testArena()
	id := a.Spawn(world.Vec3{}, 0, unarmed(1), 50)

	a.MoveTo(id, world.Vec3{X: 500})
	a.Step(1)

	pos, _ := a.PositionOf(id)
	if math.Abs(pos.X-50) > 0.001 {
		t.Errorf("position after 1s at speed 50 = %+v, want X=50", pos)
	}
	vel, _ := a.VelocityOf(id)
	if math.Abs(vel.X-50) > 0.001 {
		t.Errorf("velocity = %+v, want X=50", vel)
	}

	// Ten more seconds covers the remaining distance and stops.
	for i := 0; i < 12; i++ {
		a.Step(1)
	}
	pos, _ = a.PositionOf(id)
	if math.Abs(pos.X-500) > arriveEpsilon+50 {
		t.Errorf("position = %+v, want near 500", pos)
	}
}

func TestHoldPosition(t *testing.T) {
	a := testArena()
	id := a.Spawn(world.Vec3{}, 0, unarmed(1), 50)

	a.MoveTo(id, world.Vec3{X: 500})
	a.Step(1)
	a.HoldPosition(id)
	before, _ := a.PositionOf(id)

	a.Step(5)
	after, _ := a.PositionOf(id)
	if before.DistanceTo(after) > 0.001 {
		t.Errorf("entity moved after HoldPosition: %+v -> %+v", before, after)
	}
}

func TestWeaponFireAndDestruction(t *testing.T) {
	a := testArena()
	a.SetStance(0, 1, world.RelationHostile)

	shooter := a.Spawn(world.Vec3{}, 0, armed(5), 0) // 500 DPS
	victim := a.Spawn(world.Vec3{X: 300}, 1, unarmed(2), 0)

	a.SetWeaponTarget(shooter, victim, world.Vec3{X: 300}, world.Vec3{})

	// 200 hull at 500 DPS dies inside half a second of fire.
	for i := 0; i < 10; i++ {
		a.Step(0.1)
	}

	if _, ok := a.PositionOf(victim); ok {
		t.Error("victim survived sustained fire")
	}
	if a.Count() != 1 {
		t.Errorf("Count = %d, want 1", a.Count())
	}
	// The dead entity must also vanish from radius queries.
	got := a.EntitiesWithinRadius(world.Vec3{}, 1000)
	if len(got) != 1 || got[0] != shooter {
		t.Errorf("radius query = %v, want only the shooter", got)
	}
}

func TestWeaponFireRespectsRange(t *testing.T) {
	a := testArena()
	a.SetStance(0, 1, world.RelationHostile)

	shooter := a.Spawn(world.Vec3{}, 0, armed(5), 0)
	victim := a.Spawn(world.Vec3{X: 5000}, 1, unarmed(2), 0)

	a.SetWeaponTarget(shooter, victim, world.Vec3{X: 5000}, world.Vec3{})
	for i := 0; i < 10; i++ {
		a.Step(0.1)
	}

	if hp, _ := a.IntegrityOf(victim); hp != 1 {
		t.Errorf("integrity = %v, want 1 when target is out of range", hp)
	}
}

func TestApplyDamage(t *testing.T) {
	a := testArena()
	id := a.Spawn(world.Vec3{}, 0, unarmed(4), 0) // 400 hull

	a.ApplyDamage(id, 100)
	if hp, _ := a.IntegrityOf(id); math.Abs(hp-0.75) > 0.001 {
		t.Errorf("integrity = %v, want 0.75", hp)
	}

	a.ApplyDamage(id, 1000)
	if hp, _ := a.IntegrityOf(id); hp != 0 {
		t.Errorf("integrity = %v, want clamp at 0", hp)
	}
	a.Step(0.1)
	if _, ok := a.PositionOf(id); ok {
		t.Error("destroyed entity still present after Step")
	}
}
